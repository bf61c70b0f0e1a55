package commands

import (
	"context"
	"errors"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/campaign"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type ApplicationView struct {
	campaign.Application
	Actions []campaign.Action `json:"actions"`
}

type CampaignHandler struct {
	market ports.Marketplace
	clock  clock.Clock
	log    *logger.Logger
}

func NewCampaignHandler(market ports.Marketplace, clk clock.Clock, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		market: market,
		clock:  clk,
		log:    log,
	}
}

func (h *CampaignHandler) List(ctx context.Context) ([]campaign.Campaign, error) {
	campaigns, err := h.market.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []campaign.Campaign{}
	}
	return campaigns, nil
}

func (h *CampaignHandler) Get(ctx context.Context, id string) (*campaign.Campaign, error) {
	c, err := h.market.GetCampaign(ctx, id)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, domainErrors.ErrCampaignNotFound
	}
	return c, err
}

func (h *CampaignHandler) Create(ctx context.Context, user *session.User, draft campaign.Draft) (*campaign.Campaign, error) {
	if user == nil {
		return nil, domainErrors.ErrUnauthorized
	}
	if err := draft.Validate(h.clock.Now(), true); err != nil {
		return nil, err
	}

	c, err := h.market.CreateCampaign(ctx, draft)
	if err != nil {
		return nil, err
	}
	h.log.Info("Campaign created", "campaign_id", c.ID, "user_id", user.ID)
	return c, nil
}

func (h *CampaignHandler) Update(ctx context.Context, user *session.User, id string, draft campaign.Draft) (*campaign.Campaign, error) {
	if _, err := h.owned(ctx, user, id); err != nil {
		return nil, err
	}
	if err := draft.Validate(h.clock.Now(), false); err != nil {
		return nil, err
	}

	c, err := h.market.UpdateCampaign(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	h.log.Info("Campaign updated", "campaign_id", id, "user_id", user.ID)
	return c, nil
}

// UploadImage stores a campaign image. An empty campaignID uploads an image
// for a campaign that is still being drafted.
func (h *CampaignHandler) UploadImage(ctx context.Context, user *session.User, campaignID string, file ports.Upload) (string, error) {
	if user == nil {
		return "", domainErrors.ErrUnauthorized
	}
	if campaignID != "" {
		if _, err := h.owned(ctx, user, campaignID); err != nil {
			return "", err
		}
	}
	return h.market.UploadCampaignImage(ctx, campaignID, file)
}

func (h *CampaignHandler) Apply(ctx context.Context, user *session.User, campaignID string, draft campaign.ApplicationDraft) (*campaign.Application, error) {
	if user == nil {
		return nil, domainErrors.ErrUnauthorized
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	c, err := h.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !c.AcceptingApplications(h.clock.Now()) {
		verr := domainErrors.NewValidationError(nil)
		verr.Add("campaign", "Campaign is not accepting applications")
		return nil, verr
	}

	app, err := h.market.Apply(ctx, campaignID, draft)
	if err != nil {
		return nil, err
	}
	h.log.Info("Applied to campaign", "campaign_id", campaignID, "user_id", user.ID)
	return app, nil
}

func (h *CampaignHandler) ListApplications(ctx context.Context, user *session.User, campaignID string) ([]ApplicationView, error) {
	if _, err := h.owned(ctx, user, campaignID); err != nil {
		return nil, err
	}

	apps, err := h.market.ListApplications(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	views := make([]ApplicationView, 0, len(apps))
	for _, app := range apps {
		views = append(views, ApplicationView{Application: app, Actions: app.AvailableActions()})
	}
	return views, nil
}

// ChangeApplicationStatus accepts or rejects a pending application. The
// transition is checked locally before the marketplace sees it.
func (h *CampaignHandler) ChangeApplicationStatus(ctx context.Context, user *session.User, campaignID, applicationID string, action campaign.Action) (*ApplicationView, error) {
	target, ok := action.Target()
	if !ok {
		return nil, domainErrors.ErrInvalidTransition
	}
	if _, err := h.owned(ctx, user, campaignID); err != nil {
		return nil, err
	}

	apps, err := h.market.ListApplications(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var app *campaign.Application
	for i := range apps {
		if apps[i].ID == applicationID {
			app = &apps[i]
			break
		}
	}
	if app == nil {
		return nil, domainErrors.ErrApplicationNotFound
	}
	if err := app.Transition(target); err != nil {
		return nil, err
	}

	updated, err := h.market.ChangeApplicationStatus(ctx, applicationID, target)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = app
	}

	h.log.Info("Application status changed",
		"campaign_id", campaignID,
		"application_id", applicationID,
		"status", updated.Status,
	)
	return &ApplicationView{Application: *updated, Actions: updated.AvailableActions()}, nil
}

func (h *CampaignHandler) owned(ctx context.Context, user *session.User, campaignID string) (*campaign.Campaign, error) {
	if user == nil {
		return nil, domainErrors.ErrUnauthorized
	}

	c, err := h.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	shopID := user.ShopID
	if shopID == "" {
		shop, err := h.market.GetMyShop(ctx)
		if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return nil, err
		}
		if shop != nil {
			shopID = shop.ID
		}
	}
	if !c.OwnedBy(shopID) {
		return nil, domainErrors.ErrNotCampaignOwner
	}
	return c, nil
}
