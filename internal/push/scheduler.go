package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rowanhale/verdant/internal/model"
	"github.com/rowanhale/verdant/internal/store"
	"github.com/rowanhale/verdant/internal/watering"
)

// Scheduler runs the background reminder loop: an hourly sweep for overdue
// plants and a once-daily digest at each household's configured hour. Every
// send is debounced through the notification log so restarts never double
// notify.
type Scheduler struct {
	mu         sync.RWMutex
	sender     Sender
	fallback   Fallback
	push       *store.PushStore
	plants     *store.PlantStore
	settings   *store.SettingsStore
	households *store.HouseholdStore
	logger     *slog.Logger
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

// Fallback delivers one notification to one user through channels beyond this
// package's push sender, typically push with an email fallback. Satisfied by
// notify.Dispatcher.
type Fallback interface {
	Dispatch(ctx context.Context, userID int64, plant model.Plant, notificationType, title, message string) bool
}

func NewScheduler(sender Sender, pushStore *store.PushStore, plantStore *store.PlantStore, settingsStore *store.SettingsStore, householdStore *store.HouseholdStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:     sender,
		push:       pushStore,
		plants:     plantStore,
		settings:   settingsStore,
		households: householdStore,
		logger:     logger.With("component", "push-scheduler"),
		interval:   60 * time.Second,
	}
}

// SetFallback enables per-member delivery with an email fallback for watering
// reminders. Without one, reminders go out as plain push broadcasts.
func (s *Scheduler) SetFallback(f Fallback) {
	s.fallback = f
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	// Hourly work only; the minute ticker exists so a restart mid-hour
	// still lands on the next minute-zero boundary.
	if now.Minute() != 0 {
		return
	}

	householdIDs, err := s.plants.ListHouseholdIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	for _, hid := range householdIDs {
		s.sweepOverdue(hid, now)
		if now.Hour() == s.settings.ReminderHour(hid) && s.settings.DigestEnabled(hid) {
			s.sendDigest(hid, now)
		}
	}
}

// sweepOverdue sends one reminder per overdue plant per day. Failures on one
// plant never abort the rest of the sweep.
func (s *Scheduler) sweepOverdue(householdID int64, now time.Time) {
	plants, err := s.plants.List(householdID)
	if err != nil {
		s.logger.Error("sweep: list plants", "household_id", householdID, "error", err)
		return
	}

	var sent, failed int
	for _, p := range plants {
		if !watering.IsOverdue(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil, now) {
			continue
		}

		refID := fmt.Sprintf("water-%d-%s", p.ID, now.Format("2006-01-02"))
		already, err := s.push.WasSent(householdID, model.NotifTypeWateringReminder, refID)
		if err != nil {
			s.logger.Error("sweep: check sent", "plant_id", p.ID, "error", err)
			failed++
			continue
		}
		if already {
			continue
		}

		days := -watering.DaysUntil(p.LastWatered, p.WateringFrequencyDays, p.SnoozedUntil, now)
		body := fmt.Sprintf("%s is %d days overdue for watering", p.Name, days)
		if days == 1 {
			body = fmt.Sprintf("%s is 1 day overdue for watering", p.Name)
		}
		payload := Payload{
			Title: "Time to water",
			Body:  body,
			URL:   fmt.Sprintf("/plants/%d", p.ID),
			Tag:   fmt.Sprintf("water-%d", p.ID),
		}

		if s.notifyReminder(householdID, p, payload) {
			sent++
		} else {
			failed++
		}
		if err := s.push.RecordSent(householdID, model.NotifTypeWateringReminder, refID); err != nil {
			s.logger.Error("sweep: record sent", "plant_id", p.ID, "error", err)
		}
	}

	if sent > 0 || failed > 0 {
		s.logger.Info("overdue sweep complete", "household_id", householdID, "sent", sent, "failed", failed)
	}
}

// notifyReminder delivers one overdue reminder. With a fallback configured it
// goes member by member so users without push devices still get email;
// otherwise it is a plain push broadcast.
func (s *Scheduler) notifyReminder(householdID int64, p model.Plant, payload Payload) bool {
	if s.fallback == nil {
		return s.broadcast(householdID, model.NotifTypeWateringReminder, payload, 0)
	}

	members, err := s.households.ListMembers(householdID)
	if err != nil {
		s.logger.Error("reminder: list members", "household_id", householdID, "error", err)
		return false
	}

	delivered := false
	for _, m := range members {
		if s.fallback.Dispatch(context.Background(), m.UserID, p, model.NotifTypeWateringReminder, payload.Title, payload.Body) {
			delivered = true
		}
	}
	return delivered || len(members) == 0
}

// sendDigest sends one morning summary of plants due today.
func (s *Scheduler) sendDigest(householdID int64, now time.Time) {
	refID := fmt.Sprintf("digest-%s", now.Format("2006-01-02"))
	already, err := s.push.WasSent(householdID, model.NotifTypeDailyDigest, refID)
	if err != nil || already {
		return
	}

	plants, err := s.plants.List(householdID)
	if err != nil {
		s.logger.Error("digest: list plants", "household_id", householdID, "error", err)
		return
	}

	groups := watering.GroupByStatus(plants, now)
	if len(groups.DueToday) == 0 {
		return
	}

	names := make([]string, 0, len(groups.DueToday))
	for _, p := range groups.DueToday {
		names = append(names, p.Name)
	}
	body := fmt.Sprintf("%d plants need water today: %s", len(names), strings.Join(names, ", "))
	if len(names) == 1 {
		body = fmt.Sprintf("%s needs water today", names[0])
	}

	payload := Payload{
		Title: "Today's watering",
		Body:  body,
		URL:   "/plants",
		Tag:   "daily-digest",
	}
	s.broadcast(householdID, model.NotifTypeDailyDigest, payload, 0)
	if err := s.push.RecordSent(householdID, model.NotifTypeDailyDigest, refID); err != nil {
		s.logger.Error("digest: record sent", "household_id", householdID, "error", err)
	}
}

// SendCareLogged notifies the rest of the household when someone logs care.
// Called from the care handler, not from the scheduler loop.
func (s *Scheduler) SendCareLogged(householdID, actorUserID int64, plantName, kind string) {
	payload := Payload{
		Title: "Care logged",
		Body:  fmt.Sprintf("%s: %s", plantName, kind),
		URL:   "/plants",
		Tag:   "care-logged",
	}
	s.broadcast(householdID, model.NotifTypeCareLogged, payload, actorUserID)
}

// SendMemberJoined notifies existing members when someone joins the household.
func (s *Scheduler) SendMemberJoined(householdID, newUserID int64, name string) {
	payload := Payload{
		Title: "New household member",
		Body:  fmt.Sprintf("%s joined the household", name),
		URL:   "/household",
		Tag:   "member-joined",
	}
	s.broadcast(householdID, model.NotifTypeMemberJoined, payload, newUserID)
}

// broadcast delivers a payload to every household subscription whose owner has
// the notification type enabled, skipping excludeUserID. Expired subscriptions
// are pruned. Returns true if at least one delivery succeeded or there was
// nobody to deliver to.
func (s *Scheduler) broadcast(householdID int64, notificationType string, payload Payload, excludeUserID int64) bool {
	if s.sender == nil {
		return false
	}
	subs, err := s.push.ListByHousehold(householdID)
	if err != nil {
		s.logger.Error("broadcast: list subscriptions", "household_id", householdID, "error", err)
		return false
	}

	attempted, delivered := 0, 0
	for _, sub := range subs {
		if excludeUserID != 0 && sub.UserID == excludeUserID {
			continue
		}
		enabled, err := s.push.IsPreferenceEnabled(sub.UserID, householdID, notificationType)
		if err != nil || !enabled {
			continue
		}

		attempted++
		if err := s.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("broadcast: prune expired subscription", "error", err)
				}
			} else {
				s.logger.Warn("broadcast: send failed", "user_id", sub.UserID, "error", err)
			}
			continue
		}
		delivered++
	}
	return attempted == 0 || delivered > 0
}
