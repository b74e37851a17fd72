package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tripkeep/internal/assets"
	"github.com/dukerupert/tripkeep/internal/backup"
	"github.com/dukerupert/tripkeep/internal/handler"
	"github.com/dukerupert/tripkeep/internal/middleware"
	"github.com/dukerupert/tripkeep/internal/provider"
	"github.com/dukerupert/tripkeep/internal/store"
	ws "github.com/dukerupert/tripkeep/internal/websocket"
)

// Config carries the settings the server wires into its components.
type Config struct {
	JWTSecret     []byte
	Backup        backup.Config
	Offsite       backup.S3Config
	Provider      provider.Config
	MaxImportSize int64
	WSOrigins     []string
}

type Server struct {
	db            *sql.DB
	cfg           Config
	hub           *ws.Hub
	users         *store.UserStore
	settingsH     *handler.SettingsHandler
	backupH       *handler.BackupHandler
	placesH       *handler.PlacesHandler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger

	stopLimiter context.CancelFunc
}

func New(db *sql.DB, as *assets.Store, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	users := store.NewUserStore(db)

	offsite := backup.NewOffsite(cfg.Offsite)
	if offsite != nil {
		logger.Info("off-site backup mirror enabled", "bucket", cfg.Offsite.Bucket)
	}
	backupMgr := backup.NewManager(cfg.Backup, db, as, offsite, logger.With("component", "backup"), hub.NotifyBackup)

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		users:         users,
		settingsH:     handler.NewSettingsHandler(users, logger.With("component", "settings")),
		backupH:       handler.NewBackupHandler(backupMgr, cfg.MaxImportSize, logger.With("component", "backup_handler")),
		placesH:       handler.NewPlacesHandler(users, cfg.Provider, logger.With("component", "places")),
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(10, time.Minute),
		logger:        logger,
	}
}

// Start runs background work: interrupted-job recovery, backup retention,
// and rate limiter cleanup.
func (s *Server) Start(ctx context.Context) error {
	if err := s.backupManager.Start(ctx); err != nil {
		return err
	}
	ctx, s.stopLimiter = context.WithCancel(ctx)
	go s.rateLimiter.Run(ctx)
	return nil
}

// Shutdown waits for queued backups to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopLimiter != nil {
		s.stopLimiter()
	}
	return s.backupManager.Shutdown(ctx)
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped by RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.cfg.JWTSecret, s.users, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByUser)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Backups
	mux.Handle("POST /api/settings/backups", s.rateLimited(s.backupH.Create))
	mux.HandleFunc("GET /api/settings/backups", s.backupH.List)
	mux.HandleFunc("GET /api/settings/backups/{id}/download", s.backupH.Download)
	mux.HandleFunc("DELETE /api/settings/backups/{id}", s.backupH.Delete)
	mux.Handle("POST /api/settings/backups/import", s.rateLimited(s.backupH.Import))

	// Map provider
	mux.HandleFunc("GET /api/places/google-search", s.placesH.Search)
	mux.HandleFunc("GET /api/places/google-nearby", s.placesH.Nearby)
	mux.HandleFunc("GET /api/places/google-geocode", s.placesH.Geocode)
	mux.HandleFunc("POST /api/places/google-multilinks", s.placesH.MultiLinks)
	mux.HandleFunc("POST /api/route", s.placesH.Route)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.WSOrigins, s.logger.With("component", "websocket")))
}
