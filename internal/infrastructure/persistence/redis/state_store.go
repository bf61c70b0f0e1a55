package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
)

// The state hash holds "version" and "doc". A save only lands when the
// stored version still equals the one the caller loaded.
const saveStateLuaScript = `
	local key = KEYS[1]
	local expected = tonumber(ARGV[1])
	local current = tonumber(redis.call('HGET', key, 'version') or '0')

	if current ~= expected then
		return 0
	end

	redis.call('HSET', key, 'version', ARGV[2], 'doc', ARGV[3])
	redis.call('PEXPIRE', key, ARGV[4])

	return 1
`

type StateStore struct {
	client    *redis.Client
	keys      session.KeySpace
	ttl       time.Duration
	saveState *redis.Script
}

var _ ports.StateStore = (*StateStore)(nil)

func NewStateStore(conn *Connection, keys session.KeySpace, ttl time.Duration) *StateStore {
	return &StateStore{
		client:    conn.GetClient(),
		keys:      keys,
		ttl:       ttl,
		saveState: redis.NewScript(saveStateLuaScript),
	}
}

// Load returns a fresh state at version 0 when nothing is stored yet.
func (s *StateStore) Load(ctx context.Context, sessionID string) (*storefront.State, error) {
	fields, err := s.client.HGetAll(ctx, s.keys.State(sessionID)).Result()
	if err != nil {
		return nil, err
	}

	doc, ok := fields["doc"]
	if !ok {
		return storefront.NewState(), nil
	}

	state := storefront.NewState()
	if err := json.Unmarshal([]byte(doc), state); err != nil {
		return nil, fmt.Errorf("decoding storefront state: %w", err)
	}

	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decoding state version: %w", err)
	}
	state.Version = version

	return state, nil
}

// Save bumps state.Version on success and returns ErrStaleState when
// another writer got there first.
func (s *StateStore) Save(ctx context.Context, sessionID string, state *storefront.State) error {
	next := state.Version + 1

	snapshot := *state
	snapshot.Version = next
	doc, err := json.Marshal(&snapshot)
	if err != nil {
		return err
	}

	result, err := s.saveState.Run(ctx, s.client,
		[]string{s.keys.State(sessionID)},
		state.Version, next, doc, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("saving storefront state: %w", err)
	}
	if result != 1 {
		return domainErrors.ErrStaleState
	}

	state.Version = next
	return nil
}

func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.keys.State(sessionID)).Err()
}
