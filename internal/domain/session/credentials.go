package session

import (
	"github.com/mercadotiendas/storefront/internal/pkg/validation"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c Credentials) Validate() error {
	return validation.Struct(c).OrNil()
}

type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"omitempty,oneof=buyer seller influencer"`
}

func (r Registration) Validate() error {
	return validation.Struct(r).OrNil()
}
