// Package auth provides email and password authentication for WaterTime.
package auth

import "time"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// User represents an account that can sign in.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Goal     *int
}

// TokenPair is issued after a successful login, registration or refresh.
type TokenPair struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64

	// RefreshToken is the opaque token used to obtain new access tokens.
	RefreshToken string

	// User is the authenticated account.
	User *User
}
