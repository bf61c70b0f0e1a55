package routing

import "fmt"

type Access int

const (
	Public Access = iota
	Private
	// RedirectIfAuthenticated marks screens like login that a signed-in
	// user is bounced away from.
	RedirectIfAuthenticated
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Private:
		return "private"
	case RedirectIfAuthenticated:
		return "redirect"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type Route struct {
	Method  string
	Pattern string
	Name    string
	Access  Access
}

// Key is the net/http ServeMux pattern for the route.
func (r Route) Key() string {
	if r.Method == "" {
		return r.Pattern
	}
	return r.Method + " " + r.Pattern
}

type Decision struct {
	Allow      bool
	RedirectTo string
}

type Table struct {
	routes []Route
}

func NewTable(routes ...Route) *Table {
	return &Table{routes: routes}
}

func (t *Table) Add(routes ...Route) {
	t.routes = append(t.routes, routes...)
}

func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func (t *Table) Group(access Access) []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Access == access {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) Lookup(name string) (Route, bool) {
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

func Decide(route Route, authenticated bool) Decision {
	switch route.Access {
	case Private:
		if !authenticated {
			return Decision{RedirectTo: LoginPath}
		}
	case RedirectIfAuthenticated:
		if authenticated {
			return Decision{RedirectTo: HomePath}
		}
	}
	return Decision{Allow: true}
}
