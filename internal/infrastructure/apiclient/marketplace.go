package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/campaign"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
)

// Marketplace maps the remote REST endpoints onto typed calls.
type Marketplace struct {
	client *Client
}

var _ ports.Marketplace = (*Marketplace)(nil)

func NewMarketplace(client *Client) *Marketplace {
	return &Marketplace{client: client}
}

type authResponse struct {
	Token        string        `json:"token"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *session.User `json:"user"`
}

func (r authResponse) tokens() session.Tokens {
	access := r.Token
	if access == "" {
		access = r.AccessToken
	}
	return session.Tokens{AccessToken: access, RefreshToken: r.RefreshToken}
}

func (m *Marketplace) Login(ctx context.Context, creds session.Credentials) (session.Tokens, *session.User, error) {
	var out authResponse
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/auth/login", Endpoint: "auth.login", JSON: creds,
	}, &out)
	if err != nil {
		return session.Tokens{}, nil, err
	}
	return out.tokens(), out.User, nil
}

func (m *Marketplace) Register(ctx context.Context, reg session.Registration) (session.Tokens, *session.User, error) {
	var out authResponse
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/auth/register", Endpoint: "auth.register", JSON: reg,
	}, &out)
	if err != nil {
		return session.Tokens{}, nil, err
	}
	return out.tokens(), out.User, nil
}

func (m *Marketplace) Logout(ctx context.Context) error {
	_, err := m.client.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/logout", Endpoint: "auth.logout"})
	return err
}

func (m *Marketplace) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := m.client.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/auth/me", Endpoint: "auth.me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Marketplace) ListProducts(ctx context.Context, query cart.ProductQuery) ([]cart.Product, error) {
	q := url.Values{}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.ShopID != "" {
		q.Set("shopId", query.ShopID)
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	products := []cart.Product{}
	err := m.client.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/products", Query: q, Endpoint: "products.list"}, &products)
	return products, err
}

func (m *Marketplace) GetProduct(ctx context.Context, id string) (*cart.Product, error) {
	var p cart.Product
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodGet, Path: "/products/" + url.PathEscape(id), Endpoint: "products.get",
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Marketplace) GetMyShop(ctx context.Context) (*cart.Shop, error) {
	var s cart.Shop
	if err := m.client.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/shops/my-shop", Endpoint: "shops.mine"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Marketplace) GetShop(ctx context.Context, id string) (*cart.Shop, error) {
	var s cart.Shop
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodGet, Path: "/shops/" + url.PathEscape(id), Endpoint: "shops.get",
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Marketplace) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	campaigns := []campaign.Campaign{}
	err := m.client.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/campaigns", Endpoint: "campaigns.list"}, &campaigns)
	return campaigns, err
}

func (m *Marketplace) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error) {
	var c campaign.Campaign
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodGet, Path: "/campaigns/" + url.PathEscape(id), Endpoint: "campaigns.get",
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Marketplace) CreateCampaign(ctx context.Context, draft campaign.Draft) (*campaign.Campaign, error) {
	var c campaign.Campaign
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/campaigns", Endpoint: "campaigns.create", JSON: draft,
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Marketplace) UpdateCampaign(ctx context.Context, id string, draft campaign.Draft) (*campaign.Campaign, error) {
	var c campaign.Campaign
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPut, Path: "/campaigns/" + url.PathEscape(id), Endpoint: "campaigns.update", JSON: draft,
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
	URL      string `json:"url"`
}

func (r uploadResponse) location() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return r.URL
}

// UploadCampaignImage posts the file as the "image" part, with the campaign
// id as a plain field when the campaign already exists.
func (m *Marketplace) UploadCampaignImage(ctx context.Context, campaignID string, file ports.Upload) (string, error) {
	form := &Multipart{
		Fields: map[string]string{},
		Files:  []FilePart{{Field: "image", Filename: file.Filename, ContentType: file.ContentType, Body: file.Body}},
	}
	if campaignID != "" {
		form.Fields["campaignId"] = campaignID
	}

	var out uploadResponse
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/campaigns/upload-image", Endpoint: "campaigns.upload_image", Multipart: form,
	}, &out)
	return out.location(), err
}

func (m *Marketplace) UploadImage(ctx context.Context, file ports.Upload) (string, error) {
	form := &Multipart{
		Files: []FilePart{{Field: "image", Filename: file.Filename, ContentType: file.ContentType, Body: file.Body}},
	}

	var out uploadResponse
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/upload/image", Endpoint: "upload.image", Multipart: form,
	}, &out)
	return out.location(), err
}

func (m *Marketplace) ListApplications(ctx context.Context, campaignID string) ([]campaign.Application, error) {
	apps := []campaign.Application{}
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodGet, Path: "/campaigns/" + url.PathEscape(campaignID) + "/applications", Endpoint: "applications.list",
	}, &apps)
	return apps, err
}

func (m *Marketplace) Apply(ctx context.Context, campaignID string, draft campaign.ApplicationDraft) (*campaign.Application, error) {
	var app campaign.Application
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/campaigns/" + url.PathEscape(campaignID) + "/apply", Endpoint: "applications.create", JSON: draft,
	}, &app)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (m *Marketplace) ChangeApplicationStatus(ctx context.Context, applicationID string, status campaign.ApplicationStatus) (*campaign.Application, error) {
	var app campaign.Application
	err := m.client.DoJSON(ctx, Request{
		Method:   http.MethodPatch,
		Path:     "/campaigns/applications/" + url.PathEscape(applicationID) + "/status",
		Endpoint: "applications.status",
		JSON:     map[string]campaign.ApplicationStatus{"status": status},
	}, &app)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (m *Marketplace) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	var out struct {
		ID         string `json:"id"`
		CheckoutID string `json:"checkoutId"`
		URL        string `json:"url"`
	}
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodPost, Path: "/payments/checkout", Endpoint: "payments.checkout", JSON: req,
	}, &out)
	if err != nil {
		return nil, err
	}

	id := out.CheckoutID
	if id == "" {
		id = out.ID
	}
	return &payment.Checkout{ID: id, URL: out.URL}, nil
}

func (m *Marketplace) CheckoutStatus(ctx context.Context, checkoutID string) (payment.Status, error) {
	var out struct {
		Status json.RawMessage `json:"status"`
	}
	err := m.client.DoJSON(ctx, Request{
		Method: http.MethodGet, Path: "/payments/checkout/" + url.PathEscape(checkoutID), Endpoint: "payments.status",
	}, &out)
	if err != nil {
		return "", err
	}

	// The gateway reports numeric codes; the marketplace may pass them
	// through as numbers or strings.
	raw := strings.Trim(string(out.Status), `"`)
	if raw == "" || raw == "null" {
		return payment.StatusPending, nil
	}
	return payment.ParseStatus(raw), nil
}
