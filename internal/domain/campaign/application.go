package campaign

import (
	"fmt"
	"time"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/pkg/validation"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	return s == ApplicationPending || s == ApplicationAccepted || s == ApplicationRejected
}

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func (a Action) Target() (ApplicationStatus, bool) {
	switch a {
	case ActionAccept:
		return ApplicationAccepted, true
	case ActionReject:
		return ApplicationRejected, true
	default:
		return "", false
	}
}

// Application is an influencer's proposal for a campaign.
type Application struct {
	ID           string            `json:"id"`
	CampaignID   string            `json:"campaignId"`
	InfluencerID string            `json:"influencerId"`
	Message      string            `json:"message"`
	SocialHandle string            `json:"socialHandle,omitempty"`
	Followers    int               `json:"followers"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt,omitempty"`
}

// Transition moves a pending application to accepted or rejected. Both are
// terminal.
func (a *Application) Transition(to ApplicationStatus) error {
	if a.Status != ApplicationPending {
		return fmt.Errorf("%w: application is %s", domainErrors.ErrInvalidTransition, a.Status)
	}
	if to != ApplicationAccepted && to != ApplicationRejected {
		return fmt.Errorf("%w: cannot move to %q", domainErrors.ErrInvalidTransition, to)
	}
	a.Status = to
	return nil
}

// AvailableActions lists what the shop owner may still do.
func (a Application) AvailableActions() []Action {
	if a.Status != ApplicationPending {
		return []Action{}
	}
	return []Action{ActionAccept, ActionReject}
}

type ApplicationDraft struct {
	Message      string `json:"message" validate:"required,min=10,max=1000"`
	SocialHandle string `json:"socialHandle" validate:"max=100"`
	Followers    int    `json:"followers" validate:"gte=0"`
}

func (d ApplicationDraft) Validate() error {
	return validation.Struct(d).OrNil()
}
