package use_cases

import (
	"context"
	"errors"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

// Mutation changes a loaded state in place. Returning an error aborts the
// save.
type Mutation func(state *storefront.State) error

// StateMutator runs load, mutate, save against the versioned state store.
// When another request saved first, the mutation is re-applied on a fresh
// load, once.
type StateMutator struct {
	states        ports.StateStore
	log           *logger.Logger
	retryAttempts int
}

func NewStateMutator(states ports.StateStore, log *logger.Logger) *StateMutator {
	return &StateMutator{
		states:        states,
		log:           log,
		retryAttempts: 2,
	}
}

func (m *StateMutator) Load(ctx context.Context, sessionID string) (*storefront.State, error) {
	return m.states.Load(ctx, sessionID)
}

func (m *StateMutator) Mutate(ctx context.Context, sessionID string, mutate Mutation) (*storefront.State, error) {
	var lastErr error

	for attempt := 0; attempt < m.retryAttempts; attempt++ {
		state, err := m.states.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if err := mutate(state); err != nil {
			return nil, err
		}

		err = m.states.Save(ctx, sessionID, state)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, domainErrors.ErrStaleState) {
			return nil, err
		}

		lastErr = err
		monitoring.RecordStaleStateRetry()
		m.log.Warn("State changed concurrently, re-applying", "session_id", sessionID, "attempt", attempt+1)
	}

	return nil, lastErr
}
