package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/encero/chores-tracker-sub000/internal/chore"
	"github.com/encero/chores-tracker-sub000/internal/config"
	"github.com/encero/chores-tracker-sub000/internal/database"
	"github.com/encero/chores-tracker-sub000/internal/handler"
	"github.com/encero/chores-tracker-sub000/internal/middleware"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/store"
	ws "github.com/encero/chores-tracker-sub000/internal/websocket"
)

// Login attempts allowed per IP per window.
const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	childH       *handler.ChildHandler
	templateH    *handler.TemplateHandler
	scheduleH    *handler.ScheduleHandler
	instanceH    *handler.InstanceHandler
	effortH      *handler.EffortHandler
	authH        *handler.AuthHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	scheduler    *chore.Scheduler
	corsOrigins  []string
	logger       *slog.Logger
}

func New(db *sql.DB, cfg config.Config, loc *time.Location, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	childStore := store.NewChildStore(db)
	templateStore := store.NewTemplateStore(db)
	scheduleStore := store.NewScheduleStore(db)
	instanceStore := store.NewInstanceStore(db)
	ledgerStore := store.NewLedgerStore(db)
	settingsStore := store.NewSettingsStore(db)
	sessionStore := store.NewSessionStore(db)

	generator := chore.NewGenerator(scheduleStore, instanceStore, logger.With("component", "generator"))
	service := chore.NewService(childStore, templateStore, scheduleStore, instanceStore, logger.With("component", "chore"))
	scheduler := chore.NewScheduler(generator, sessionStore, cfg.GenerateInterval, loc, cfg.MissedGraceDays, logger.With("component", "scheduler"))

	today := func() string {
		return recurrence.Today(time.Now(), loc)
	}

	return &Server{
		db:           db,
		hub:          hub,
		childH:       handler.NewChildHandler(childStore, ledgerStore, hub, logger.With("component", "child")),
		templateH:    handler.NewTemplateHandler(templateStore, hub, logger.With("component", "template")),
		scheduleH:    handler.NewScheduleHandler(service, generator, scheduleStore, hub, today, logger.With("component", "schedule")),
		instanceH:    handler.NewInstanceHandler(service, generator, instanceStore, hub, today, logger.With("component", "instance")),
		effortH:      handler.NewEffortHandler(),
		authH:        handler.NewAuthHandler(settingsStore, sessionStore, cfg.SessionTTL, logger.With("component", "auth")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(loginLimit, loginWindow),
		scheduler:    scheduler,
		corsOrigins:  cfg.CORSOrigins,
		logger:       logger,
	}
}

// Scheduler returns the background generation scheduler.
func (s *Server) Scheduler() *chore.Scheduler {
	return s.scheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// SeedParentPIN stores pin as the parent PIN if none is configured yet.
func (s *Server) SeedParentPIN(pin string) error {
	return s.authH.SeedParentPIN(pin)
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.corsOrigins, s.logger.With("component", "websocket")))

	s.registerRoutes(mux)

	var h http.Handler = mux
	h = middleware.LoadSession(s.sessionStore)(h)
	if len(s.corsOrigins) > 0 {
		h = cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		})(h)
	}
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	version, err := database.Version(r.Context(), s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "schema_version": version})
}

func parentOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireParent(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Auth
	mux.Handle("POST /api/auth/login", middleware.RateLimit(s.rateLimiter)(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("PUT /api/auth/pin", s.authH.SetParentPIN)

	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.Handle("POST /api/children", parentOnly(s.childH.Create))
	mux.Handle("PUT /api/children/{id}", parentOnly(s.childH.Update))
	mux.Handle("DELETE /api/children/{id}", parentOnly(s.childH.Delete))
	mux.Handle("PUT /api/children/sort", parentOnly(s.childH.Reorder))
	mux.Handle("POST /api/children/{id}/pin", parentOnly(s.childH.SetPIN))
	mux.Handle("DELETE /api/children/{id}/pin", parentOnly(s.childH.ClearPIN))
	mux.Handle("POST /api/children/{id}/pin/verify", middleware.RateLimit(s.rateLimiter)(http.HandlerFunc(s.childH.VerifyPIN)))
	mux.HandleFunc("GET /api/children/{id}/balance", s.childH.Balance)
	mux.HandleFunc("GET /api/children/{id}/transactions", s.childH.Transactions)
	mux.Handle("POST /api/children/{id}/payouts", parentOnly(s.childH.Payout))
	mux.Handle("POST /api/children/{id}/adjustments", parentOnly(s.childH.Adjust))

	// Templates
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.Handle("POST /api/templates", parentOnly(s.templateH.Create))
	mux.Handle("PUT /api/templates/{id}", parentOnly(s.templateH.Update))
	mux.Handle("DELETE /api/templates/{id}", parentOnly(s.templateH.Delete))

	// Schedules
	mux.HandleFunc("GET /api/schedules", s.scheduleH.List)
	mux.Handle("POST /api/schedules", parentOnly(s.scheduleH.Create))
	mux.HandleFunc("GET /api/schedules/{id}", s.scheduleH.Get)
	mux.Handle("PUT /api/schedules/{id}", parentOnly(s.scheduleH.Update))
	mux.Handle("DELETE /api/schedules/{id}", parentOnly(s.scheduleH.Delete))
	mux.HandleFunc("POST /api/schedules/{id}/generate", s.scheduleH.Generate)

	// Instances
	mux.HandleFunc("POST /api/instances/generate", s.instanceH.Generate)
	mux.HandleFunc("GET /api/instances", s.instanceH.List)
	mux.HandleFunc("GET /api/instances/{id}", s.instanceH.Get)
	mux.HandleFunc("POST /api/instances/{id}/participants/{child_id}/done", s.instanceH.MarkDone)
	mux.HandleFunc("DELETE /api/instances/{id}/participants/{child_id}/done", s.instanceH.UnmarkDone)
	mux.HandleFunc("GET /api/instances/{id}/preview", s.instanceH.Preview)
	mux.Handle("POST /api/instances/{id}/rate", parentOnly(s.instanceH.Rate))

	// Efforts
	mux.HandleFunc("POST /api/efforts/redistribute", s.effortH.Redistribute)
	mux.HandleFunc("POST /api/efforts/equal", s.effortH.Equal)
}
