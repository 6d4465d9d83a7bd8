package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/backup"
	"github.com/rowanhale/verdant/internal/email"
	"github.com/rowanhale/verdant/internal/handler"
	"github.com/rowanhale/verdant/internal/middleware"
	"github.com/rowanhale/verdant/internal/notify"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
	ws "github.com/rowanhale/verdant/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	BackupCfg       backup.Config
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	SecureCookies   bool
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	plantH         *handler.PlantHandler
	locationH      *handler.LocationHandler
	speciesH       *handler.SpeciesHandler
	careH          *handler.CareHandler
	pushH          *handler.PushHandler
	settingsH      *handler.SettingsHandler
	backupH        *handler.BackupHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	magicLinkStore *store.MagicLinkStore
	pushStore      *store.PushStore
	rateLimiter    *middleware.RateLimiter
	tokens         *auth.TokenIssuer
	backupManager  *backup.Manager
	pushService    *push.Service
	pushScheduler  *push.Scheduler
	logger         *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, tokens *auth.TokenIssuer, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)
	plantStore := store.NewPlantStore(db)
	speciesStore := store.NewSpeciesStore(db)
	locationStore := store.NewLocationStore(db)
	activityStore := store.NewCareActivityStore(db)
	healthStore := store.NewHealthRecordStore(db)
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(cfg.BackupCfg, db, backupStore, logger, func(s backup.Status) {
		// Backup state is instance-wide; surface it to every connected
		// household so owners see progress.
		ids, err := plantStore.ListHouseholdIDs()
		if err != nil {
			return
		}
		for _, hid := range ids {
			hub.Broadcast(hid, ws.Message{
				Type:   "backup_status",
				Entity: "backup",
				Action: string(s.State),
				Extra: map[string]any{
					"in_progress": s.InProgress,
					"error":       s.Error,
				},
			})
		}
	})

	var pushSvc *push.Service
	var sender push.Sender
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		sender = pushSvc
	}
	pushSched := push.NewScheduler(sender, pushStore, plantStore, settingsStore, householdStore, logger)
	pushSched.SetFallback(notify.NewDispatcher(sender, pushStore, userStore, emailClient, logger))

	var pushH *handler.PushHandler
	if pushSvc != nil {
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, magicLinkStore, emailClient, tokens, cfg.SecureCookies, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, userStore, sessionStore, emailClient, pushSched, hub, logger.With("component", "household")),
		plantH:         handler.NewPlantHandler(plantStore, speciesStore, locationStore, activityStore, pushSched, hub, logger.With("component", "plant")),
		locationH:      handler.NewLocationHandler(locationStore, logger.With("component", "location")),
		speciesH:       handler.NewSpeciesHandler(speciesStore, logger.With("component", "species")),
		careH:          handler.NewCareHandler(activityStore, healthStore, plantStore, pushSched, hub, logger.With("component", "care")),
		pushH:          pushH,
		settingsH:      handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		magicLinkStore: magicLinkStore,
		pushStore:      pushStore,
		rateLimiter:    middleware.NewRateLimiter(),
		tokens:         tokens,
		backupManager:  backupMgr,
		pushService:    pushSvc,
		pushScheduler:  pushSched,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinkStore
}

// PushStore returns the push store for cleanup tasks.
func (s *Server) PushStore() *store.PushStore {
	return s.pushStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the push notification scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/verify", s.rateLimited(s.authH.Verify))

	// Routes a user must reach before they belong to any household. These
	// authenticate only; requiring a resolved household here would leave a
	// fresh account with no way to create or join one.
	userOnly := middleware.RequireUser(s.sessionStore, s.householdStore, s.tokens)
	outerMux.Handle("POST /api/households", userOnly(http.HandlerFunc(s.householdH.Create)))
	outerMux.Handle("POST /api/households/join", userOnly(http.HandlerFunc(s.householdH.Join)))
	outerMux.Handle("GET /api/households", userOnly(http.HandlerFunc(s.householdH.List)))
	outerMux.Handle("POST /api/auth/logout", userOnly(http.HandlerFunc(s.authH.Logout)))
	outerMux.Handle("GET /api/auth/me", userOnly(http.HandlerFunc(s.authH.Me)))

	// Everything else requires an authenticated, household-scoped request.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore, s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

// withCap gates a handler behind a role capability.
func withCap(c auth.Capability, h http.HandlerFunc) http.Handler {
	return middleware.RequireCapability(c)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Household routes
	mux.HandleFunc("GET /api/household", s.householdH.Get)
	mux.Handle("PUT /api/household", withCap(auth.CapManageHousehold, s.householdH.Update))
	mux.HandleFunc("GET /api/household/members", s.householdH.Members)
	mux.Handle("PUT /api/household/members/{id}", withCap(auth.CapManageMembers, s.householdH.UpdateMemberRole))
	// Self-leave is allowed for any role; the handler enforces the
	// manage-members capability when removing someone else.
	mux.HandleFunc("DELETE /api/household/members/{id}", s.householdH.RemoveMember)
	mux.Handle("POST /api/household/invite", withCap(auth.CapManageMembers, s.householdH.Invite))

	// Plant routes
	mux.HandleFunc("GET /api/plants", s.plantH.List)
	mux.HandleFunc("GET /api/plants/grouped", s.plantH.Grouped)
	mux.HandleFunc("GET /api/plants/{id}", s.plantH.Get)
	mux.Handle("POST /api/plants", withCap(auth.CapEditPlants, s.plantH.Create))
	mux.Handle("PUT /api/plants/{id}", withCap(auth.CapEditPlants, s.plantH.Update))
	mux.Handle("DELETE /api/plants/{id}", withCap(auth.CapEditPlants, s.plantH.Delete))
	mux.Handle("POST /api/plants/{id}/water", withCap(auth.CapLogCare, s.plantH.Water))
	mux.Handle("POST /api/plants/{id}/snooze", withCap(auth.CapLogCare, s.plantH.Snooze))
	mux.Handle("DELETE /api/plants/{id}/snooze", withCap(auth.CapLogCare, s.plantH.Unsnooze))

	// Location routes
	mux.HandleFunc("GET /api/locations", s.locationH.List)
	mux.Handle("POST /api/locations", withCap(auth.CapEditPlants, s.locationH.Create))
	mux.Handle("PUT /api/locations/{id}", withCap(auth.CapEditPlants, s.locationH.Update))
	mux.Handle("DELETE /api/locations/{id}", withCap(auth.CapEditPlants, s.locationH.Delete))

	// Species routes
	mux.HandleFunc("GET /api/species", s.speciesH.List)
	mux.HandleFunc("GET /api/species/{id}", s.speciesH.Get)
	mux.Handle("POST /api/species", withCap(auth.CapEditPlants, s.speciesH.Create))
	mux.Handle("PUT /api/species/{id}", withCap(auth.CapEditPlants, s.speciesH.Update))
	mux.Handle("DELETE /api/species/{id}", withCap(auth.CapEditPlants, s.speciesH.Delete))

	// Care log routes
	mux.Handle("POST /api/plants/{id}/care", withCap(auth.CapLogCare, s.careH.CreateActivity))
	mux.HandleFunc("GET /api/plants/{id}/care", s.careH.ListActivities)
	mux.HandleFunc("GET /api/care/recent", s.careH.RecentActivity)
	mux.Handle("POST /api/plants/{id}/health", withCap(auth.CapLogCare, s.careH.CreateHealthRecord))
	mux.HandleFunc("GET /api/plants/{id}/health", s.careH.ListHealthRecords)

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
		mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	}

	// Settings routes
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.Handle("PUT /api/settings", withCap(auth.CapManageHousehold, s.settingsH.Update))

	// Backup routes
	mux.Handle("POST /api/backup/run", withCap(auth.CapManageHousehold, s.backupH.Run))
	mux.Handle("GET /api/backup/status", withCap(auth.CapManageHousehold, s.backupH.Status))
	mux.Handle("GET /api/backups", withCap(auth.CapManageHousehold, s.backupH.List))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
