package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type AuthHandler struct {
	auth *commands.AuthHandler
	log  *logger.Logger
}

func NewAuthHandler(auth *commands.AuthHandler, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type screenData struct {
	Screen        string `json:"screen"`
	Authenticated bool   `json:"authenticated"`
}

// HandleScreen serves the login and register screens, which only anonymous
// visitors reach.
func (h *AuthHandler) HandleScreen(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteSuccess(w, screenData{Screen: name, Authenticated: currentSession(r).Authenticated()})
	}
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	result, err := h.auth.Login(r.Context(), currentSession(r).ID, creds)
	writeResult(w, result, err)
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg session.Registration
	if err := decodeJSON(r, &reg); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	result, err := h.auth.Register(r.Context(), currentSession(r).ID, reg)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, result)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), currentSession(r).ID); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, commands.AuthResult{}, "Logged out")
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Me(r.Context(), currentSession(r).ID)
	writeResult(w, result, err)
}
