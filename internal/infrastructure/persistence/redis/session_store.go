package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/apiclient"
)

// SessionStore keeps the access token, refresh token and cached user under
// separate prefixed keys, mirroring what the browser kept in localStorage.
type SessionStore struct {
	client *redis.Client
	keys   session.KeySpace
	ttl    time.Duration
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(conn *Connection, keys session.KeySpace, ttl time.Duration) *SessionStore {
	return &SessionStore{client: conn.GetClient(), keys: keys, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*session.Session, error) {
	values, err := s.client.MGet(ctx,
		s.keys.AccessToken(sessionID),
		s.keys.RefreshToken(sessionID),
		s.keys.User(sessionID),
	).Result()
	if err != nil {
		return nil, err
	}

	sess := &session.Session{ID: sessionID}
	sess.Tokens.AccessToken = stringValue(values[0])
	sess.Tokens.RefreshToken = stringValue(values[1])

	if raw := stringValue(values[2]); raw != "" {
		var user session.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, fmt.Errorf("decoding cached user: %w", err)
		}
		sess.User = &user
	}

	return sess, nil
}

func (s *SessionStore) SaveTokens(ctx context.Context, sessionID string, tokens session.Tokens) error {
	pipe := s.client.TxPipeline()
	setOrDelete(ctx, pipe, s.keys.AccessToken(sessionID), tokens.AccessToken, s.ttl)
	setOrDelete(ctx, pipe, s.keys.RefreshToken(sessionID), tokens.RefreshToken, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) SaveUser(ctx context.Context, sessionID string, user *session.User) error {
	if user == nil {
		return s.client.Del(ctx, s.keys.User(sessionID)).Err()
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.User(sessionID), data, s.ttl).Err()
}

func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.keys.All(sessionID)...).Err()
}

var rotateScript = redis.NewScript(`
for i = 1, #KEYS, 2 do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		redis.call('RENAME', KEYS[i], KEYS[i + 1])
	end
end
return 1
`)

func (s *SessionStore) Rotate(ctx context.Context, from, to string) error {
	if from == "" || from == to {
		return nil
	}
	src := append(s.keys.All(from), s.keys.State(from))
	dst := append(s.keys.All(to), s.keys.State(to))

	keys := make([]string, 0, 2*len(src))
	for i := range src {
		keys = append(keys, src[i], dst[i])
	}
	if err := rotateScript.Run(ctx, s.client, keys).Err(); err != nil {
		return fmt.Errorf("rotating session: %w", err)
	}
	return nil
}

// Tokens returns a token store bound to the session id carried by ctx.
func (s *SessionStore) Tokens() apiclient.TokenStore {
	return contextTokens{store: s}
}

type contextTokens struct {
	store *SessionStore
}

func (c contextTokens) Tokens(ctx context.Context) (session.Tokens, error) {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return session.Tokens{}, nil
	}
	pipe := c.store.client.Pipeline()
	access := pipe.Get(ctx, c.store.keys.AccessToken(sid))
	refresh := pipe.Get(ctx, c.store.keys.RefreshToken(sid))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return session.Tokens{}, err
	}
	return session.Tokens{AccessToken: access.Val(), RefreshToken: refresh.Val()}, nil
}

func (c contextTokens) SaveTokens(ctx context.Context, tokens session.Tokens) error {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return errors.New("no session on context")
	}
	return c.store.SaveTokens(ctx, sid, tokens)
}

func (c contextTokens) ClearTokens(ctx context.Context) error {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return nil
	}
	return c.store.Clear(ctx, sid)
}

func setOrDelete(ctx context.Context, pipe redis.Pipeliner, key, value string, ttl time.Duration) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, ttl)
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
