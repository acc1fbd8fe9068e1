package models

// UserProfile is the user's profile and goal.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Goal      int       `json:"goal"`
	Height    *float64  `json:"height,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// ProfileUpdateRequest is the request body for PUT /v1/user/profile.
// Omitted fields are left unchanged.
type ProfileUpdateRequest struct {
	Name   *string  `json:"name,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// GoalUpdateRequest is the request body for PUT /v1/user/goal.
type GoalUpdateRequest struct {
	Goal *float64 `json:"goal"`
}
