package checkout

import (
	"fmt"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
)

// Snapshot is what the guard needs to know about a session.
type Snapshot struct {
	CartItems     int
	Authenticated bool
	OrderPlaced   bool
}

// Guard is the server-side transition check. Unlike the Tracker it refuses
// jumps the session is not ready for, so typing a later URL does not skip
// the cart or payment.
type Guard struct{}

func NewGuard() Guard {
	return Guard{}
}

func (Guard) CanEnter(target Step, snap Snapshot) error {
	if !target.Valid() {
		return fmt.Errorf("%w: step %d is out of range", domainErrors.ErrStepNotAllowed, target)
	}

	switch target {
	case StepCart:
		return nil
	case StepShipping, StepPayment:
		if snap.CartItems == 0 && !snap.OrderPlaced {
			return fmt.Errorf("%w: %s requires items in the cart", domainErrors.ErrStepNotAllowed, target)
		}
		if target == StepPayment && !snap.Authenticated {
			return fmt.Errorf("%w: payment requires login", domainErrors.ErrStepNotAllowed)
		}
		return nil
	case StepConfirmation:
		if !snap.OrderPlaced {
			return fmt.Errorf("%w: confirmation requires a placed order", domainErrors.ErrStepNotAllowed)
		}
		return nil
	}

	return nil
}
