// Package user provides user profile and daily goal management.
package user

import "time"

// Goal limits in millilitres.
const (
	DefaultGoal = 2000
	MinGoal     = 500
	MaxGoal     = 10000
)

// Body measurement limits.
const (
	MaxHeightCM = 300
	MaxWeightKG = 500
)

// User represents a user's profile.
type User struct {
	ID        string
	Email     string
	Name      string
	Goal      int
	Height    *float64
	Weight    *float64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate carries optional profile changes.
type ProfileUpdate struct {
	Name   *string
	Height *float64
	Weight *float64
}
