package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	private := Route{Method: "GET", Pattern: "/api/checkout/step", Name: "checkout.step", Access: Private}
	login := Route{Method: "POST", Pattern: "/login", Name: "auth.login", Access: RedirectIfAuthenticated}
	products := Route{Method: "GET", Pattern: "/api/products", Name: "products.list", Access: Public}

	assert.Equal(t, Decision{RedirectTo: "/login"}, Decide(private, false))
	assert.Equal(t, Decision{Allow: true}, Decide(private, true))

	assert.Equal(t, Decision{Allow: true}, Decide(login, false))
	assert.Equal(t, Decision{RedirectTo: "/"}, Decide(login, true))

	assert.Equal(t, Decision{Allow: true}, Decide(products, false))
	assert.Equal(t, Decision{Allow: true}, Decide(products, true))
}

func TestTableGroups(t *testing.T) {
	table := NewTable(
		Route{Pattern: "/health", Name: "health", Access: Public},
		Route{Method: "POST", Pattern: "/login", Name: "login", Access: RedirectIfAuthenticated},
	)
	table.Add(Route{Method: "GET", Pattern: "/api/shops/me", Name: "shops.me", Access: Private})

	assert.Len(t, table.Routes(), 3)
	assert.Len(t, table.Group(Public), 1)
	assert.Len(t, table.Group(Private), 1)
	assert.Len(t, table.Group(RedirectIfAuthenticated), 1)

	r, ok := table.Lookup("shops.me")
	assert.True(t, ok)
	assert.Equal(t, "GET /api/shops/me", r.Key())

	r, _ = table.Lookup("health")
	assert.Equal(t, "/health", r.Key())

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "private", Private.String())
	assert.Equal(t, "access(9)", Access(9).String())
}
