package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
)

func newTestConnection(t *testing.T) (*Connection, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewConnectionFromClient(client), mr
}

var keys = session.NewKeySpace("mercadotiendas")

func TestSessionStoreRoundTrip(t *testing.T) {
	conn, mr := newTestConnection(t)
	store := NewSessionStore(conn, keys, time.Hour)
	ctx := context.Background()

	sess, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())

	require.NoError(t, store.SaveTokens(ctx, "sid-1", session.Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.SaveUser(ctx, "sid-1", &session.User{ID: "u1", Role: session.RoleSeller, ShopID: "s1"}))

	got, err := mr.Get("mercadotiendas:sid-1:token")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	got, err = mr.Get("mercadotiendas:sid-1:refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "r", got)
	assert.True(t, mr.TTL("mercadotiendas:sid-1:token") > 0)

	sess, err = store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, "s1", sess.User.ShopID)

	require.NoError(t, store.Clear(ctx, "sid-1"))
	assert.False(t, mr.Exists("mercadotiendas:sid-1:token"))
	assert.False(t, mr.Exists("mercadotiendas:sid-1:refresh_token"))
	assert.False(t, mr.Exists("mercadotiendas:sid-1:user"))
}

func TestContextTokens(t *testing.T) {
	conn, _ := newTestConnection(t)
	store := NewSessionStore(conn, keys, time.Hour)
	tokens := store.Tokens()

	anon, err := tokens.Tokens(context.Background())
	require.NoError(t, err)
	assert.True(t, anon.Empty())

	ctx := session.WithID(context.Background(), "sid-2")
	require.NoError(t, tokens.SaveTokens(ctx, session.Tokens{AccessToken: "x", RefreshToken: "y"}))

	got, err := tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{AccessToken: "x", RefreshToken: "y"}, got)

	require.NoError(t, tokens.ClearTokens(ctx))
	got, err = tokens.Tokens(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestStateStoreVersioning(t *testing.T) {
	conn, _ := newTestConnection(t)
	store := NewStateStore(conn, keys, time.Hour)
	ctx := context.Background()

	state, err := store.Load(ctx, "sid-3")
	require.NoError(t, err)
	assert.EqualValues(t, 0, state.Version)
	assert.Equal(t, checkout.StepCart, state.Step.Current())

	state.Cart.AddToCart(cart.Product{ID: "p1", Price: decimal.RequireFromString("12.50")}, 2)
	state.Step.NextStep()
	state.Payment.SetPaymentMethod(payment.MethodTransfer)
	require.NoError(t, store.Save(ctx, "sid-3", state))
	assert.EqualValues(t, 1, state.Version)

	loaded, err := store.Load(ctx, "sid-3")
	require.NoError(t, err)
	assert.EqualValues(t, 1, loaded.Version)
	assert.Equal(t, 2, loaded.Cart.TotalQuantity())
	assert.Equal(t, checkout.StepShipping, loaded.Step.Current())
	assert.Equal(t, payment.MethodTransfer, loaded.Payment.Current())
}

func TestStateStoreRejectsStaleWrite(t *testing.T) {
	conn, _ := newTestConnection(t)
	store := NewStateStore(conn, keys, time.Hour)
	ctx := context.Background()

	tabA, err := store.Load(ctx, "sid-4")
	require.NoError(t, err)
	tabB, err := store.Load(ctx, "sid-4")
	require.NoError(t, err)

	tabA.Cart.AddToCart(cart.Product{ID: "p1"}, 1)
	require.NoError(t, store.Save(ctx, "sid-4", tabA))

	tabB.Cart.AddToCart(cart.Product{ID: "p2"}, 1)
	err = store.Save(ctx, "sid-4", tabB)
	assert.ErrorIs(t, err, domainErrors.ErrStaleState)
	assert.EqualValues(t, 0, tabB.Version, "version untouched on conflict")

	require.NoError(t, store.Delete(ctx, "sid-4"))
	fresh, err := store.Load(ctx, "sid-4")
	require.NoError(t, err)
	assert.True(t, fresh.Cart.IsEmpty())
}

func TestLocker(t *testing.T) {
	conn, mr := newTestConnection(t)
	locker := NewLocker(conn)
	ctx := context.Background()
	key := keys.Lock("sid-5", "place_order")

	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, key, "someone-else"))
	assert.True(t, mr.Exists(key), "foreign token must not release")

	require.NoError(t, locker.Unlock(ctx, key, token))
	assert.False(t, mr.Exists(key))

	_, ok, err = locker.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be retaken")
}

func TestSessionStoreRotateMovesAuthAndState(t *testing.T) {
	conn, mr := newTestConnection(t)
	sessions := NewSessionStore(conn, keys, time.Hour)
	states := NewStateStore(conn, keys, time.Hour)
	ctx := context.Background()

	state, err := states.Load(ctx, "old")
	require.NoError(t, err)
	state.Cart.AddToCart(cart.Product{ID: "p1", Price: decimal.NewFromInt(10)}, 2)
	require.NoError(t, states.Save(ctx, "old", state))
	require.NoError(t, sessions.SaveTokens(ctx, "old", session.Tokens{AccessToken: "a"}))

	require.NoError(t, sessions.Rotate(ctx, "old", "new"))

	assert.False(t, mr.Exists("mercadotiendas:old:state"))
	assert.False(t, mr.Exists("mercadotiendas:old:token"))

	moved, err := states.Load(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Cart.TotalQuantity())

	sess, err := sessions.Load(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "a", sess.Tokens.AccessToken)
	assert.Empty(t, sess.Tokens.RefreshToken)
}
