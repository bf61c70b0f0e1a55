package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

func TestAuthHandler_LoginStoresTokens(t *testing.T) {
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, newFakeMarket(), nil, logger.NewNop())
	ctx := context.Background()

	result, err := h.Login(ctx, "s1", session.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, result.Authenticated)
	assert.Equal(t, "ana@example.com", result.User.Email)

	sess, err := sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "refresh", sess.Tokens.RefreshToken)
	assert.Equal(t, "u-1", sess.UserID())
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	h := NewAuthHandler(newMemSessions(), newFakeMarket(), nil, logger.NewNop())

	_, err := h.Login(context.Background(), "s1", session.Credentials{Email: "not-an-email"})

	var verr *domainErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestAuthHandler_LoginUpstreamFailure(t *testing.T) {
	market := newFakeMarket()
	market.loginErr = domainErrors.ErrUnauthorized
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, market, nil, logger.NewNop())

	_, err := h.Login(context.Background(), "s1", session.Credentials{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domainErrors.ErrUnauthorized)

	sess, err := sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
}

func TestAuthHandler_RegisterDefaultsRole(t *testing.T) {
	h := NewAuthHandler(newMemSessions(), newFakeMarket(), nil, logger.NewNop())

	result, err := h.Register(context.Background(), "s1", session.Registration{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, session.RoleBuyer, result.User.Role)
}

func TestAuthHandler_LogoutClearsEvenWhenUpstreamFails(t *testing.T) {
	market := newFakeMarket()
	market.logoutErr = domainErrors.ErrUpstreamUnavailable
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, market, nil, logger.NewNop())
	ctx := context.Background()

	_, err := h.Login(ctx, "s1", session.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, h.Logout(ctx, "s1"))

	result, err := h.Me(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, result.Authenticated)
	assert.Nil(t, result.User)
}

func TestAuthHandler_MeFetchesMissingProfile(t *testing.T) {
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, newFakeMarket(), nil, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, sessions.SaveTokens(ctx, "s1", session.Tokens{AccessToken: "access"}))

	result, err := h.Me(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.User.ID)

	sess, err := sessions.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
}

func TestAuthHandler_LoginRotatesSessionID(t *testing.T) {
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, newFakeMarket(), func() string { return "s-fresh" }, logger.NewNop())

	var issued string
	ctx := session.WithRebind(context.Background(), func(id string) { issued = id })

	_, err := h.Login(ctx, "planted", session.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "s-fresh", issued)

	planted, err := sessions.Load(ctx, "planted")
	require.NoError(t, err)
	assert.False(t, planted.Authenticated(), "tokens must not land on the pre-login id")

	fresh, err := sessions.Load(ctx, "s-fresh")
	require.NoError(t, err)
	assert.True(t, fresh.Authenticated())
	assert.Equal(t, []string{"planted->s-fresh"}, sessions.rotations)
}

func TestAuthHandler_NoRotationWithoutTransport(t *testing.T) {
	sessions := newMemSessions()
	h := NewAuthHandler(sessions, newFakeMarket(), func() string { return "s-fresh" }, logger.NewNop())

	_, err := h.Login(context.Background(), "s1", session.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Empty(t, sessions.rotations)

	sess, err := sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
}
