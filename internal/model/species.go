package model

import "time"

type Species struct {
	ID                   int64     `json:"id"`
	HouseholdID          int64     `json:"household_id"`
	CommonName           string    `json:"common_name"`
	LatinName            string    `json:"latin_name"`
	DefaultFrequencyDays int       `json:"default_frequency_days"`
	CareNotes            string    `json:"care_notes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
