package campaign

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadotiendas/storefront/internal/pkg/validation"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Campaign is a shop's promotional offer influencers can apply to.
type Campaign struct {
	ID                string          `json:"id"`
	ShopID            string          `json:"shopId"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Requirements      string          `json:"requirements,omitempty"`
	Budget            decimal.Decimal `json:"budget"`
	CommissionPercent int             `json:"commissionPercent"`
	MaxApplicants     int             `json:"maxApplicants"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	ImageURL          string          `json:"imageUrl,omitempty"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt,omitempty"`
}

func (c Campaign) OwnedBy(shopID string) bool {
	return shopID != "" && c.ShopID == shopID
}

func (c Campaign) AcceptingApplications(now time.Time) bool {
	if c.Status != "" && c.Status != StatusActive {
		return false
	}
	return c.EndDate.IsZero() || now.Before(c.EndDate)
}

// Draft is the create/edit form for a campaign.
type Draft struct {
	Title             string          `json:"title" validate:"required,max=120"`
	Description       string          `json:"description" validate:"required,max=2000"`
	Requirements      string          `json:"requirements" validate:"max=2000"`
	Budget            decimal.Decimal `json:"budget"`
	CommissionPercent int             `json:"commissionPercent" validate:"gte=0,lte=100"`
	MaxApplicants     int             `json:"maxApplicants" validate:"gte=1,lte=1000"`
	StartDate         time.Time       `json:"startDate" validate:"required"`
	EndDate           time.Time       `json:"endDate" validate:"required"`
}

// Validate runs the form checks. A campaign being edited may keep a start
// date that is already in the past, so the future check only applies to
// new campaigns.
func (d Draft) Validate(now time.Time, isNew bool) error {
	verr := validation.Struct(d)

	if !d.Budget.IsPositive() {
		verr.Add("budget", "Must be greater than 0")
	}
	if isNew && !d.StartDate.IsZero() && !d.StartDate.After(now) {
		verr.Add("startDate", "Must be a date in the future")
	}
	if !d.StartDate.IsZero() && !d.EndDate.IsZero() && !d.EndDate.After(d.StartDate) {
		verr.Add("endDate", "Must be after the start date")
	}

	return verr.OrNil()
}

func (d Draft) Apply(c *Campaign) {
	c.Title = d.Title
	c.Description = d.Description
	c.Requirements = d.Requirements
	c.Budget = d.Budget
	c.CommissionPercent = d.CommissionPercent
	c.MaxApplicants = d.MaxApplicants
	c.StartDate = d.StartDate
	c.EndDate = d.EndDate
}
