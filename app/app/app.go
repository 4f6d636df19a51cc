package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/internal/broadcast"
	"github.com/commentsweep/quota-server/app/internal/config"
	"github.com/commentsweep/quota-server/app/internal/handlers"
	"github.com/commentsweep/quota-server/app/internal/ledger"
	"github.com/commentsweep/quota-server/app/internal/quota"

	_ "github.com/mattn/go-sqlite3"
)

// App holds all application dependencies.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Store  ledger.Store
	Ledger *ledger.Ledger
	Hub    *broadcast.Hub
	Quota  *quota.Service
}

// NewApp creates and initializes all application dependencies.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg)

	store := newStore(cfg, log)
	if err := store.Init(); err != nil {
		// A broken store never blocks admission decisions; the ledger
		// degrades to in-memory operation for the process lifetime.
		log.Error().Err(err).Msg("ledger store init failed, falling back to memory store")
		store = ledger.NewMemoryStore()
	}

	led := ledger.New(store, log)
	led.Load(time.Now())

	hub := broadcast.NewHub(log)
	svc := quota.NewService(cfg, led, hub, log)

	return &App{
		Config: cfg,
		Log:    log,
		Store:  store,
		Ledger: led,
		Hub:    hub,
		Quota:  svc,
	}, nil
}

// Run registers routes and serves until the listener fails.
func (a *App) Run() error {
	quotaHandler := handlers.NewQuotaHandler(a.Quota, a.Log)
	sessionHandler := handlers.NewSessionHandler(a.Quota, a.Log)
	streamHandler := handlers.NewStreamHandler(a.Quota, a.Log)

	http.HandleFunc("/v1/quota/status", quotaHandler.HandleStatus)
	http.HandleFunc("/v1/quota/reserve", quotaHandler.HandleReserve)
	http.HandleFunc("/v1/quota/confirm", quotaHandler.HandleConfirm)
	http.HandleFunc("/v1/quota/release", quotaHandler.HandleRelease)
	http.HandleFunc("/v1/quota/estimate", quotaHandler.HandleEstimate)
	http.HandleFunc("/v1/quota/allowance", quotaHandler.HandleAllowance)
	http.HandleFunc("/v1/quota/stream", streamHandler.Handle)
	http.HandleFunc("/v1/sessions/register", sessionHandler.HandleRegister)
	http.HandleFunc("/v1/sessions/unregister", sessionHandler.HandleUnregister)
	http.HandleFunc("/v1/sessions/touch", sessionHandler.HandleTouch)

	addr := fmt.Sprintf(":%d", a.Config.HTTP.Port)
	a.Log.Info().Str("addr", addr).Msg("quota server listening")
	return http.ListenAndServe(addr, nil)
}

// Close cleans up all dependencies.
func (a *App) Close() error {
	if a.Quota != nil {
		a.Quota.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("close ledger store: %w", err)
		}
	}
	return nil
}

func newStore(cfg *config.Config, log zerolog.Logger) ledger.Store {
	switch cfg.Ledger.Type {
	case "sqlite":
		dir := filepath.Dir(cfg.Ledger.SQLiteDSN)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Error().Err(err).Str("dir", dir).Msg("create ledger directory failed, using memory store")
				return ledger.NewMemoryStore()
			}
		}
		store, err := ledger.NewSQLiteStore(cfg.Ledger.SQLiteDSN)
		if err != nil {
			log.Error().Err(err).Str("dsn", cfg.Ledger.SQLiteDSN).Msg("open sqlite store failed, using memory store")
			return ledger.NewMemoryStore()
		}
		return store
	case "memory":
		fallthrough
	default:
		return ledger.NewMemoryStore()
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.IsDebug {
		level = zerolog.DebugLevel
	}
	var w io.Writer = os.Stdout
	if cfg.IsDev {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
