package push

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rowanhale/verdant/internal/database"
	"github.com/rowanhale/verdant/internal/model"
	"github.com/rowanhale/verdant/internal/store"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []Payload
	failWith map[string]error
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failWith[sub.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type schedulerEnv struct {
	scheduler *Scheduler
	sender    *fakeSender
	plants    *store.PlantStore
	push      *store.PushStore
	settings  *store.SettingsStore

	userID      int64
	householdID int64
}

func newSchedulerEnv(t *testing.T) *schedulerEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	households := store.NewHouseholdStore(db)
	plants := store.NewPlantStore(db)
	pushStore := store.NewPushStore(db)
	settings := store.NewSettingsStore(db)

	u, err := users.Create("ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h, err := households.Create("Home", u.ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	sender := &fakeSender{failWith: make(map[string]error)}
	logger := slog.New(slog.DiscardHandler)
	return &schedulerEnv{
		scheduler:   NewScheduler(sender, pushStore, plants, settings, households, logger),
		sender:      sender,
		plants:      plants,
		push:        pushStore,
		settings:    settings,
		userID:      u.ID,
		householdID: h.ID,
	}
}

func (e *schedulerEnv) subscribe(t *testing.T, endpoint string) {
	t.Helper()
	if _, err := e.push.CreateSubscription(e.userID, e.householdID, endpoint, "p256dh", "auth", "phone"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
}

func (e *schedulerEnv) addPlant(t *testing.T, name string, frequencyDays int, lastWatered time.Time) *model.Plant {
	t.Helper()
	p, err := e.plants.Create(e.householdID, e.userID, name, nil, nil, frequencyDays, lastWatered, "", "")
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	return p
}

func TestSweepSendsOverdueReminderOnce(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	e.addPlant(t, "Monstera", 7, now.AddDate(0, 0, -10))

	e.scheduler.tick(now)
	if e.sender.count() != 1 {
		t.Fatalf("sent = %d, want 1", e.sender.count())
	}

	// Same day: debounced.
	e.scheduler.tick(now.Add(time.Hour))
	if e.sender.count() != 1 {
		t.Errorf("sent after second sweep = %d, want 1", e.sender.count())
	}

	// Next day: reminded again.
	e.scheduler.tick(now.AddDate(0, 0, 1))
	if e.sender.count() != 2 {
		t.Errorf("sent after next-day sweep = %d, want 2", e.sender.count())
	}
}

func TestSweepSkipsSnoozedAndHealthyPlants(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	e.addPlant(t, "Healthy", 7, now.AddDate(0, 0, -2))
	snoozed := e.addPlant(t, "Snoozed", 7, now.AddDate(0, 0, -10))
	if _, err := e.plants.Snooze(snoozed.ID, e.householdID, now.AddDate(0, 0, 2)); err != nil {
		t.Fatalf("snooze: %v", err)
	}

	e.scheduler.tick(now)
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0", e.sender.count())
	}
}

func TestSweepOnlyRunsAtMinuteZero(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	e.addPlant(t, "Monstera", 7, now.AddDate(0, 0, -10))

	e.scheduler.tick(now)
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0 outside the hour boundary", e.sender.count())
	}
}

func TestSweepPrunesExpiredSubscription(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/dead")
	e.sender.failWith["https://push.example/dead"] = ErrExpired
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	e.addPlant(t, "Monstera", 7, now.AddDate(0, 0, -10))

	e.scheduler.tick(now)

	subs, err := e.push.ListByHousehold(e.householdID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0 after 410 prune", len(subs))
	}
}

func TestSweepRespectsPreference(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	if err := e.push.SetPreference(e.userID, e.householdID, model.NotifTypeWateringReminder, false); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	e.addPlant(t, "Monstera", 7, now.AddDate(0, 0, -10))

	e.scheduler.tick(now)
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0 with reminders disabled", e.sender.count())
	}
}

func TestDailyDigestAtReminderHour(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	if err := e.settings.Set(e.householdID, "reminder_hour", "9"); err != nil {
		t.Fatalf("set reminder hour: %v", err)
	}

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// Due exactly today, not overdue: digest material only.
	e.addPlant(t, "Fern", 7, now.AddDate(0, 0, -7))

	e.scheduler.tick(now)
	if e.sender.count() != 1 {
		t.Fatalf("sent = %d, want 1 digest", e.sender.count())
	}
	if got := e.sender.sent[0].Tag; got != "daily-digest" {
		t.Errorf("payload tag = %q, want daily-digest", got)
	}

	// Re-running the same hour is debounced.
	e.scheduler.tick(now)
	if e.sender.count() != 1 {
		t.Errorf("sent after rerun = %d, want 1", e.sender.count())
	}
}

func TestDigestSkippedOutsideReminderHour(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	e.addPlant(t, "Fern", 7, now.AddDate(0, 0, -7))

	e.scheduler.tick(now)
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0 away from the reminder hour", e.sender.count())
	}
}

func TestDigestSkippedWhenDisabled(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/one")
	if err := e.settings.Set(e.householdID, "digest_enabled", "false"); err != nil {
		t.Fatalf("set digest_enabled: %v", err)
	}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e.addPlant(t, "Fern", 7, now.AddDate(0, 0, -7))

	e.scheduler.tick(now)
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0 with digest disabled", e.sender.count())
	}
}

func TestSendCareLoggedExcludesActor(t *testing.T) {
	e := newSchedulerEnv(t)
	e.subscribe(t, "https://push.example/actor")

	e.scheduler.SendCareLogged(e.householdID, e.userID, "Monstera", "watering")
	if e.sender.count() != 0 {
		t.Errorf("sent = %d, want 0 (actor excluded)", e.sender.count())
	}
}

type fakeFallback struct {
	mu    sync.Mutex
	calls []int64
}

func (f *fakeFallback) Dispatch(_ context.Context, userID int64, _ model.Plant, _ string, _, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return true
}

func TestSweepUsesFallbackPerMember(t *testing.T) {
	e := newSchedulerEnv(t)
	fb := &fakeFallback{}
	e.scheduler.SetFallback(fb)

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	e.addPlant(t, "Fern", 7, now.AddDate(0, 0, -9))

	e.scheduler.tick(now)

	fb.mu.Lock()
	calls := len(fb.calls)
	fb.mu.Unlock()
	if calls != 1 {
		t.Fatalf("fallback dispatches = %d, want 1 (one member)", calls)
	}
	if e.sender.count() != 0 {
		t.Errorf("direct sends = %d, want 0 when the fallback handles delivery", e.sender.count())
	}

	// Debounced on rerun like the broadcast path.
	e.scheduler.tick(now)
	fb.mu.Lock()
	calls = len(fb.calls)
	fb.mu.Unlock()
	if calls != 1 {
		t.Errorf("fallback dispatches after rerun = %d, want 1", calls)
	}
}
