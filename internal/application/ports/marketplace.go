package ports

import (
	"context"
	"io"

	"github.com/mercadotiendas/storefront/internal/domain/campaign"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
)

// Upload is a file forwarded to the marketplace as multipart form data.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Marketplace is the remote REST API. Calls authenticate with the tokens of
// the session found on ctx.
type Marketplace interface {
	Login(ctx context.Context, creds session.Credentials) (session.Tokens, *session.User, error)
	Register(ctx context.Context, reg session.Registration) (session.Tokens, *session.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*session.User, error)

	ListProducts(ctx context.Context, query cart.ProductQuery) ([]cart.Product, error)
	GetProduct(ctx context.Context, id string) (*cart.Product, error)
	GetMyShop(ctx context.Context) (*cart.Shop, error)
	GetShop(ctx context.Context, id string) (*cart.Shop, error)

	ListCampaigns(ctx context.Context) ([]campaign.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error)
	CreateCampaign(ctx context.Context, draft campaign.Draft) (*campaign.Campaign, error)
	UpdateCampaign(ctx context.Context, id string, draft campaign.Draft) (*campaign.Campaign, error)
	UploadCampaignImage(ctx context.Context, campaignID string, file Upload) (string, error)
	UploadImage(ctx context.Context, file Upload) (string, error)

	ListApplications(ctx context.Context, campaignID string) ([]campaign.Application, error)
	Apply(ctx context.Context, campaignID string, draft campaign.ApplicationDraft) (*campaign.Application, error)
	ChangeApplicationStatus(ctx context.Context, applicationID string, status campaign.ApplicationStatus) (*campaign.Application, error)

	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error)
	// CheckoutStatus asks the marketplace, which holds the gateway
	// credentials, for the current state of a checkout.
	CheckoutStatus(ctx context.Context, checkoutID string) (payment.Status, error)
}
