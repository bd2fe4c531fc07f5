package domain

import "strings"

// User is the signed-in account.
type User struct {
	ID       string
	Email    string
	Name     string
	Picture  string
	Provider string
}

// DisplayName prefers the name and falls back to the email.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	return u.Email
}

// Tokens is an access/refresh token pair issued by the backend.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Credentials are used for password login and signup.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

// Validate checks the fields required for login.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return ErrInvalidCredentials
	}
	return nil
}
