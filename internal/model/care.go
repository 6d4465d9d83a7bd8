package model

import "time"

// Care activity kinds.
const (
	CareWatering    = "watering"
	CareFertilizing = "fertilizing"
	CareRepotting   = "repotting"
	CarePruning     = "pruning"
	CareMisting     = "misting"
	CareRotating    = "rotating"
)

// ValidCareKind reports whether kind is a recognized care activity kind.
func ValidCareKind(kind string) bool {
	switch kind {
	case CareWatering, CareFertilizing, CareRepotting, CarePruning, CareMisting, CareRotating:
		return true
	}
	return false
}

// CareActivity is an append-only log entry. Rows are never mutated after
// creation; they form the plant's care audit trail.
type CareActivity struct {
	ID          int64     `json:"id"`
	PlantID     int64     `json:"plant_id"`
	HouseholdID int64     `json:"household_id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	Notes       string    `json:"notes"`
	PerformedAt time.Time `json:"performed_at"`
	CreatedAt   time.Time `json:"created_at"`
}
