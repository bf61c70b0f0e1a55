package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/domain/campaign"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type storedState struct {
	version int64
	doc     []byte
}

// memStates mimics the Redis compare-and-set store.
type memStates struct {
	mu    sync.Mutex
	items map[string]storedState
}

func newMemStates() *memStates {
	return &memStates{items: make(map[string]storedState)}
}

func (m *memStates) Load(_ context.Context, sessionID string) (*storefront.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[sessionID]
	if !ok {
		return storefront.NewState(), nil
	}
	state := storefront.NewState()
	if err := json.Unmarshal(stored.doc, state); err != nil {
		return nil, err
	}
	state.Version = stored.version
	return state, nil
}

func (m *memStates) Save(_ context.Context, sessionID string, state *storefront.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items[sessionID].version != state.Version {
		return domainErrors.ErrStaleState
	}
	next := state.Version + 1
	state.Version = next
	doc, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.items[sessionID] = storedState{version: next, doc: doc}
	return nil
}

func (m *memStates) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.items, sessionID)
	m.mu.Unlock()
	return nil
}

type memSessions struct {
	mu        sync.Mutex
	sessions  map[string]*session.Session
	rotations []string
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*session.Session)}
}

func (m *memSessions) Load(_ context.Context, sessionID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		copied := *s
		return &copied, nil
	}
	return &session.Session{ID: sessionID}, nil
}

func (m *memSessions) get(sessionID string) *session.Session {
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session.Session{ID: sessionID}
		m.sessions[sessionID] = s
	}
	return s
}

func (m *memSessions) SaveTokens(_ context.Context, sessionID string, tokens session.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(sessionID).Tokens = tokens
	return nil
}

func (m *memSessions) SaveUser(_ context.Context, sessionID string, user *session.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(sessionID).User = user
	return nil
}

func (m *memSessions) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *memSessions) Rotate(_ context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotations = append(m.rotations, from+"->"+to)
	if s, ok := m.sessions[from]; ok {
		delete(m.sessions, from)
		s.ID = to
		m.sessions[to] = s
	}
	return nil
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	count int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.count++
	token := fmt.Sprintf("token-%d", l.count)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type memDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemDeduper() *memDeduper {
	return &memDeduper{keys: make(map[string]bool)}
}

func (d *memDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys[key], nil
}

func (d *memDeduper) Remember(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[key] = true
	return nil
}

// memPayments follows the SQL repository: only pending or expired
// attempts accept a result.
type memPayments struct {
	mu       sync.Mutex
	attempts map[string]*payment.Attempt
	updates  int
}

func newMemPayments() *memPayments {
	return &memPayments{attempts: make(map[string]*payment.Attempt)}
}

func (p *memPayments) Create(_ context.Context, a *payment.Attempt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.attempts[a.CheckoutID]; ok {
		return domainErrors.ErrCheckoutInFlight
	}
	copied := *a
	p.attempts[a.CheckoutID] = &copied
	return nil
}

func (p *memPayments) GetByID(_ context.Context, id string) (*payment.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.attempts {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrPaymentAttemptNotFound
}

func (p *memPayments) GetByCheckoutID(_ context.Context, checkoutID string) (*payment.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[checkoutID]
	if !ok {
		return nil, domainErrors.ErrPaymentAttemptNotFound
	}
	copied := *a
	return &copied, nil
}

func (p *memPayments) ListBySession(_ context.Context, sessionID string, _ int) ([]*payment.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*payment.Attempt
	for _, a := range p.attempts {
		if a.SessionID == sessionID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (p *memPayments) UpdateStatus(_ context.Context, checkoutID string, status payment.Status, transactionID string, at time.Time) (*payment.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[checkoutID]
	if !ok {
		return nil, domainErrors.ErrPaymentAttemptNotFound
	}
	if a.Status != payment.StatusPending && a.Status != payment.StatusExpired {
		copied := *a
		return &copied, domainErrors.ErrPaymentAlreadyProcessed
	}
	p.updates++
	a.Status = status
	a.TransactionID = transactionID
	a.UpdatedAt = at
	copied := *a
	return &copied, nil
}

func (p *memPayments) ExpirePending(_ context.Context, olderThan, at time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, a := range p.attempts {
		if a.Status == payment.StatusPending && a.CreatedAt.Before(olderThan) {
			a.Status = payment.StatusExpired
			a.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

// fakeMarket serves canned data. Unset behaviour returns ErrNotFound.
type fakeMarket struct {
	mu sync.Mutex

	products     map[string]cart.Product
	campaigns    map[string]campaign.Campaign
	applications map[string][]campaign.Application
	myShop       *cart.Shop

	loginErr    error
	logoutErr   error
	checkoutErr error
	onCheckout  func()
	checkouts   int
	lastOrder   payment.CheckoutRequest
	// gateway holds the status the marketplace reports per checkout;
	// checkouts it does not list report approved.
	gateway     map[string]payment.Status
	statusCalls []campaign.ApplicationStatus
	uploads     []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		products:     make(map[string]cart.Product),
		campaigns:    make(map[string]campaign.Campaign),
		applications: make(map[string][]campaign.Application),
		gateway:      make(map[string]payment.Status),
	}
}

var _ ports.Marketplace = (*fakeMarket)(nil)

func (f *fakeMarket) Login(_ context.Context, creds session.Credentials) (session.Tokens, *session.User, error) {
	if f.loginErr != nil {
		return session.Tokens{}, nil, f.loginErr
	}
	return session.Tokens{AccessToken: "access", RefreshToken: "refresh"},
		&session.User{ID: "u-1", Email: creds.Email, Role: session.RoleBuyer}, nil
}

func (f *fakeMarket) Register(_ context.Context, reg session.Registration) (session.Tokens, *session.User, error) {
	return session.Tokens{AccessToken: "access"},
		&session.User{ID: "u-2", Name: reg.Name, Email: reg.Email, Role: reg.Role}, nil
}

func (f *fakeMarket) Logout(context.Context) error { return f.logoutErr }

func (f *fakeMarket) Me(context.Context) (*session.User, error) {
	return &session.User{ID: "u-1", Role: session.RoleBuyer}, nil
}

func (f *fakeMarket) ListProducts(_ context.Context, q cart.ProductQuery) ([]cart.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cart.Product
	for _, p := range f.products {
		if q.ShopID == "" || p.ShopID == q.ShopID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeMarket) GetProduct(_ context.Context, id string) (*cart.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &p, nil
}

func (f *fakeMarket) GetMyShop(context.Context) (*cart.Shop, error) {
	if f.myShop == nil {
		return nil, domainErrors.ErrNotFound
	}
	return f.myShop, nil
}

func (f *fakeMarket) GetShop(_ context.Context, id string) (*cart.Shop, error) {
	return &cart.Shop{ID: id, Name: "Shop " + id}, nil
}

func (f *fakeMarket) ListCampaigns(context.Context) ([]campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []campaign.Campaign
	for _, c := range f.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeMarket) GetCampaign(_ context.Context, id string) (*campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &c, nil
}

func (f *fakeMarket) CreateCampaign(_ context.Context, draft campaign.Draft) (*campaign.Campaign, error) {
	c := campaign.Campaign{ID: "c-new", ShopID: "shop-1", Status: campaign.StatusActive}
	draft.Apply(&c)
	return &c, nil
}

func (f *fakeMarket) UpdateCampaign(_ context.Context, id string, draft campaign.Draft) (*campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.campaigns[id]
	draft.Apply(&c)
	f.campaigns[id] = c
	return &c, nil
}

func (f *fakeMarket) UploadCampaignImage(_ context.Context, campaignID string, file ports.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, campaignID+"/"+file.Filename)
	return "https://cdn.example.com/" + file.Filename, nil
}

func (f *fakeMarket) UploadImage(_ context.Context, file ports.Upload) (string, error) {
	return "https://cdn.example.com/" + file.Filename, nil
}

func (f *fakeMarket) ListApplications(_ context.Context, campaignID string) ([]campaign.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apps := make([]campaign.Application, len(f.applications[campaignID]))
	copy(apps, f.applications[campaignID])
	return apps, nil
}

func (f *fakeMarket) Apply(_ context.Context, campaignID string, draft campaign.ApplicationDraft) (*campaign.Application, error) {
	return &campaign.Application{
		ID:         "a-new",
		CampaignID: campaignID,
		Message:    draft.Message,
		Followers:  draft.Followers,
		Status:     campaign.ApplicationPending,
	}, nil
}

func (f *fakeMarket) ChangeApplicationStatus(_ context.Context, applicationID string, status campaign.ApplicationStatus) (*campaign.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	for cid, apps := range f.applications {
		for i := range apps {
			if apps[i].ID == applicationID {
				apps[i].Status = status
				f.applications[cid] = apps
				updated := apps[i]
				return &updated, nil
			}
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (f *fakeMarket) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	if f.onCheckout != nil {
		f.onCheckout()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.checkouts++
	f.lastOrder = req
	id := fmt.Sprintf("chk-%d", f.checkouts)
	return &payment.Checkout{ID: id, URL: "https://mobbex.example.com/p/" + id}, nil
}

func (f *fakeMarket) CheckoutStatus(_ context.Context, checkoutID string) (payment.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.gateway[checkoutID]; ok {
		return status, nil
	}
	return payment.StatusApproved, nil
}

func (f *fakeMarket) addProduct(id, price string) cart.Product {
	p := cart.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), ShopID: "shop-1"}
	f.products[id] = p
	return p
}

func newTestMutator(states ports.StateStore) *use_cases.StateMutator {
	return use_cases.NewStateMutator(states, logger.NewNop())
}
