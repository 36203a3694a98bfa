package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/db"
	"github.com/yungbote/relocation-backend/internal/http"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/envutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfigFromEnv())
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if envutil.Bool("DB_AUTOMIGRATE", true) {
		if err := db.Migrate(pg.DB()); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}
	theDB := pg.DB()

	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		return nil, err
	}
	mw, err := wireMiddleware(log, cfg)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		return nil, err
	}
	handlerset := wireHandlers(log, theDB, serviceset)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       wireServer(log, cfg, metrics, handlerset, mw),
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background workers.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.Clients.Bus.StartForwarder(ctx, a.Services.Hub.Dispatch); err != nil {
		a.Log.Warn("Realtime forwarder not started; event streams stay silent", "error", err)
	}
	a.Services.Dispatcher.Start(ctx)
	a.Services.Sweeper.Start()
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

// Shutdown ends event streams and stops accepting requests, then drains
// queued turns before closing the backends they write to.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	a.Services.Hub.Close()
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.Services.Dispatcher.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("extraction drain: %w", err))
	}
	a.Services.Sweeper.Stop(ctx)
	a.Services.GraphSync.Close()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	if err := a.pg.Close(); err != nil {
		errs = append(errs, fmt.Errorf("postgres close: %w", err))
	}
	a.Log.Sync()
	return errors.Join(errs...)
}
