package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// DefaultRoles are granted to every newly registered account.
var DefaultRoles = []string{RoleUser}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile strips credentials and session state from a user record.
func (u User) Profile() UserProfile {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)

	return UserProfile{
		ID:    u.ID,
		Email: u.Email,
		Phone: u.Phone,
		Roles: roles,
	}
}

type NewUser struct {
	Email        string
	Phone        string
	PasswordHash string
	Roles        []string
}

type UserProfile struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Phone string   `json:"phone,omitempty"`
	Roles []string `json:"roles"`
}

type TokenClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AccessToken struct {
	AccessToken string `json:"accessToken"`
}
