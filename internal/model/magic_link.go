package model

import "time"

type MagicLink struct {
	ID          int64      `json:"id"`
	Token       string     `json:"-"`
	Email       string     `json:"email"`
	Purpose     string     `json:"purpose"`
	HouseholdID *int64     `json:"household_id,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
}
