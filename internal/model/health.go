package model

import "time"

// Health record statuses.
const (
	HealthHealthy        = "healthy"
	HealthNeedsAttention = "needs_attention"
	HealthSick           = "sick"
	HealthRecovering     = "recovering"
)

// ValidHealthStatus reports whether status is a recognized health status.
func ValidHealthStatus(status string) bool {
	switch status {
	case HealthHealthy, HealthNeedsAttention, HealthSick, HealthRecovering:
		return true
	}
	return false
}

type HealthRecord struct {
	ID          int64     `json:"id"`
	PlantID     int64     `json:"plant_id"`
	HouseholdID int64     `json:"household_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	PhotoURL    string    `json:"photo_url"`
	RecordedAt  time.Time `json:"recorded_at"`
	CreatedAt   time.Time `json:"created_at"`
}
