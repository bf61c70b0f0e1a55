package session

import (
	"time"
)

type Tokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type Role string

const (
	RoleBuyer      Role = "buyer"
	RoleSeller     Role = "seller"
	RoleInfluencer Role = "influencer"
	RoleAdmin      Role = "admin"
)

// User is the cached profile the backend returns at login.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	ShopID string `json:"shopId,omitempty"`
}

type Session struct {
	ID        string
	Tokens    Tokens
	User      *User
	CreatedAt time.Time
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Tokens.AccessToken != ""
}

func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}
