package commands

import (
	"context"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type AuthResult struct {
	User          *session.User `json:"user"`
	Authenticated bool          `json:"authenticated"`
}

// AuthHandler exchanges credentials with the marketplace and keeps the
// resulting tokens in the session store. Tokens never leave the server.
// A successful login or registration moves the visitor to a fresh session
// id, so an id planted before authentication never carries the tokens.
type AuthHandler struct {
	sessions ports.SessionStore
	market   ports.Marketplace
	newID    func() string
	log      *logger.Logger
}

func NewAuthHandler(sessions ports.SessionStore, market ports.Marketplace, newID func() string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		market:   market,
		newID:    newID,
		log:      log,
	}
}

func (h *AuthHandler) Login(ctx context.Context, sessionID string, creds session.Credentials) (*AuthResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	tokens, user, err := h.market.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	sessionID, err = h.rotate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := h.store(ctx, sessionID, tokens, user); err != nil {
		return nil, err
	}

	h.log.Info("User logged in", "session_id", sessionID, "user_id", userID(user))
	return &AuthResult{User: user, Authenticated: true}, nil
}

func (h *AuthHandler) Register(ctx context.Context, sessionID string, reg session.Registration) (*AuthResult, error) {
	if reg.Role == "" {
		reg.Role = session.RoleBuyer
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	tokens, user, err := h.market.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	sessionID, err = h.rotate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := h.store(ctx, sessionID, tokens, user); err != nil {
		return nil, err
	}

	h.log.Info("User registered", "session_id", sessionID, "user_id", userID(user), "role", reg.Role)
	return &AuthResult{User: user, Authenticated: true}, nil
}

// Logout always clears local auth, even when the marketplace call fails.
func (h *AuthHandler) Logout(ctx context.Context, sessionID string) error {
	if err := h.market.Logout(ctx); err != nil {
		h.log.Warn("Marketplace logout failed", "session_id", sessionID, "error", err)
	}
	if err := h.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	h.log.Info("User logged out", "session_id", sessionID)
	return nil
}

// Me returns the cached profile, refreshing it from the marketplace when the
// session has tokens but no user yet.
func (h *AuthHandler) Me(ctx context.Context, sessionID string) (*AuthResult, error) {
	sess, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return &AuthResult{}, nil
	}
	if sess.User != nil {
		return &AuthResult{User: sess.User, Authenticated: true}, nil
	}

	user, err := h.market.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.SaveUser(ctx, sessionID, user); err != nil {
		h.log.Warn("Failed to cache user", "session_id", sessionID, "error", err)
	}
	return &AuthResult{User: user, Authenticated: true}, nil
}

// rotate moves the session to a new id and hands it to the client. Without
// a transport to re-issue the id the session stays where it is.
func (h *AuthHandler) rotate(ctx context.Context, sessionID string) (string, error) {
	if h.newID == nil || !session.CanRebind(ctx) {
		return sessionID, nil
	}
	fresh := h.newID()
	if err := h.sessions.Rotate(ctx, sessionID, fresh); err != nil {
		return "", err
	}
	session.Rebind(ctx, fresh)
	h.log.Debug("Session rotated", "previous_session_id", sessionID, "session_id", fresh)
	return fresh, nil
}

func (h *AuthHandler) store(ctx context.Context, sessionID string, tokens session.Tokens, user *session.User) error {
	if err := h.sessions.SaveTokens(ctx, sessionID, tokens); err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return h.sessions.SaveUser(ctx, sessionID, user)
}

func userID(u *session.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
