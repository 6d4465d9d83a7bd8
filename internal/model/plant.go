package model

import "time"

type Plant struct {
	ID                    int64      `json:"id"`
	HouseholdID           int64      `json:"household_id"`
	UserID                int64      `json:"user_id"`
	Name                  string     `json:"name"`
	SpeciesID             *int64     `json:"species_id,omitempty"`
	LocationID            *int64     `json:"location_id,omitempty"`
	WateringFrequencyDays int        `json:"watering_frequency_days"`
	LastWatered           time.Time  `json:"last_watered"`
	SnoozedUntil          *time.Time `json:"snoozed_until,omitempty"`
	PhotoURL              string     `json:"photo_url"`
	Notes                 string     `json:"notes"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
