package watering

import (
	"log/slog"
	"time"

	"github.com/rowanhale/verdant/internal/model"
)

// Status is a plant's watering state relative to its schedule.
type Status string

const (
	StatusWatered Status = "watered"
	StatusSoon    Status = "soon"
	StatusOverdue Status = "overdue"
)

// soonWindowDays is how many days ahead a plant still counts as "soon".
const soonWindowDays = 3

// NextWateringDate returns lastWatered plus the watering frequency. If the
// plant is snoozed past that date, the snooze date wins.
func NextWateringDate(lastWatered time.Time, frequencyDays int, snoozedUntil *time.Time) time.Time {
	if frequencyDays < 1 {
		frequencyDays = 1
	}
	due := lastWatered.AddDate(0, 0, frequencyDays)
	if snoozedUntil != nil && snoozedUntil.After(due) {
		return *snoozedUntil
	}
	return due
}

// IsSnoozed reports whether the plant is snoozed strictly past now.
func IsSnoozed(snoozedUntil *time.Time, now time.Time) bool {
	return snoozedUntil != nil && snoozedUntil.After(now)
}

// DaysUntil returns the whole-day difference between the calendar day of now
// and the calendar day of the next watering date. Negative means overdue by
// that many days. Calendar-day boundaries, not 24-hour deltas: a plant due
// tomorrow at 01:00 reports 1 even when asked at 23:00 today.
func DaysUntil(lastWatered time.Time, frequencyDays int, snoozedUntil *time.Time, now time.Time) int {
	next := startOfDay(NextWateringDate(lastWatered, frequencyDays, snoozedUntil))
	today := startOfDay(now)
	return int(next.Sub(today) / (24 * time.Hour))
}

// IsOverdue reports whether the plant is past due and not snoozed.
func IsOverdue(lastWatered time.Time, frequencyDays int, snoozedUntil *time.Time, now time.Time) bool {
	if lastWatered.IsZero() {
		return false
	}
	return DaysUntil(lastWatered, frequencyDays, snoozedUntil, now) < 0 && !IsSnoozed(snoozedUntil, now)
}

// Classify buckets a plant into exactly one of watered, soon, or overdue.
// A zero last-watered timestamp or non-positive frequency is logged and
// treated as recently watered rather than escalated.
func Classify(p model.Plant, now time.Time) Status {
	if p.LastWatered.IsZero() {
		slog.Warn("plant has no last-watered timestamp", "plant_id", p.ID)
		return StatusWatered
	}
	if p.WateringFrequencyDays < 1 {
		slog.Warn("plant has invalid watering frequency", "plant_id", p.ID, "frequency", p.WateringFrequencyDays)
	}

	days := DaysUntil(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil, now)
	if wateredToday(p.LastWatered, now) || days > soonWindowDays {
		return StatusWatered
	}
	if days < 0 && !IsSnoozed(p.SnoozedUntil, now) {
		return StatusOverdue
	}
	return StatusSoon
}

// Groups is a total, disjoint partition of a plant list by urgency.
type Groups struct {
	DueToday        []model.Plant `json:"due_today"`
	Upcoming        []model.Plant `json:"upcoming"`
	RecentlyWatered []model.Plant `json:"recently_watered"`
}

// GroupByStatus partitions plants into due-today (overdue or due this calendar
// day), upcoming (due within the soon window), and recently watered.
func GroupByStatus(plants []model.Plant, now time.Time) Groups {
	var g Groups
	for _, p := range plants {
		switch Classify(p, now) {
		case StatusOverdue:
			g.DueToday = append(g.DueToday, p)
		case StatusSoon:
			if DaysUntil(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil, now) <= 0 {
				g.DueToday = append(g.DueToday, p)
			} else {
				g.Upcoming = append(g.Upcoming, p)
			}
		default:
			g.RecentlyWatered = append(g.RecentlyWatered, p)
		}
	}
	return g
}

func wateredToday(lastWatered, now time.Time) bool {
	return startOfDay(lastWatered).Equal(startOfDay(now))
}

// startOfDay truncates to the UTC calendar day. All day math in this package
// runs in UTC; mixing zones produces off-by-one errors at day boundaries.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
