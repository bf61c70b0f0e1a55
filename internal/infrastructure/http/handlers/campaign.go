package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/domain/campaign"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CampaignHandler struct {
	campaigns *commands.CampaignHandler
	log       *logger.Logger
}

func NewCampaignHandler(campaigns *commands.CampaignHandler, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, log: log}
}

type statusRequest struct {
	Action campaign.Action `json:"action"`
}

func (h *CampaignHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context())
	writeResult(w, campaigns, err)
}

func (h *CampaignHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), r.PathValue("id"))
	writeResult(w, c, err)
}

func (h *CampaignHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var draft campaign.Draft
	if err := decodeJSON(r, &draft); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	c, err := h.campaigns.Create(r.Context(), currentSession(r).User, draft)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, c, "Campaign created")
}

func (h *CampaignHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var draft campaign.Draft
	if err := decodeJSON(r, &draft); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	c, err := h.campaigns.Update(r.Context(), currentSession(r).User, r.PathValue("id"), draft)
	writeResult(w, c, err)
}

type uploadResult struct {
	URL string `json:"url"`
}

// HandleUploadImage forwards a multipart "image" field. The campaignId
// field is optional while a campaign is still being drafted.
func (h *CampaignHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	upload, closeFile, ok := readImageUpload(w, r)
	if !ok {
		return
	}
	defer closeFile()

	url, err := h.campaigns.UploadImage(r.Context(), currentSession(r).User, r.FormValue("campaignId"), upload)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, uploadResult{URL: url})
}

func (h *CampaignHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var draft campaign.ApplicationDraft
	if err := decodeJSON(r, &draft); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	app, err := h.campaigns.Apply(r.Context(), currentSession(r).User, r.PathValue("id"), draft)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, app, "Application sent")
}

func (h *CampaignHandler) HandleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.campaigns.ListApplications(r.Context(), currentSession(r).User, r.PathValue("id"))
	writeResult(w, apps, err)
}

func (h *CampaignHandler) HandleChangeApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	view, err := h.campaigns.ChangeApplicationStatus(r.Context(), currentSession(r).User, r.PathValue("id"), r.PathValue("applicationId"), req.Action)
	writeResult(w, view, err)
}
