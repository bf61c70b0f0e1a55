package ports

import (
	"context"
	"time"

	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
)

// SessionStore keeps auth material under prefixed per-session keys.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*session.Session, error)
	SaveTokens(ctx context.Context, sessionID string, tokens session.Tokens) error
	SaveUser(ctx context.Context, sessionID string, user *session.User) error
	Clear(ctx context.Context, sessionID string) error
	// Rotate moves everything stored for from, storefront state included,
	// under to. Keys that do not exist are skipped.
	Rotate(ctx context.Context, from, to string) error
}

// StateStore persists storefront state with optimistic concurrency. Save
// fails with ErrStaleState when the stored version moved since Load.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*storefront.State, error)
	Save(ctx context.Context, sessionID string, state *storefront.State) error
	Delete(ctx context.Context, sessionID string) error
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Deduper answers "maybe seen" for processed payment results. False
// positives are possible, false negatives are not.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}
