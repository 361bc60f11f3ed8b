// Package app wires configuration, the in-memory stores, the OpenDota
// gateway, and the HTTP surface into a runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/dota-tracker/external/opendota"
	"github.com/riskibarqy/dota-tracker/internal/config"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/dota-tracker/internal/interfaces/httpapi"
	"github.com/riskibarqy/dota-tracker/internal/platform/abort"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/platform/resilience"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

// Application owns the HTTP server plus the background pieces that must
// stop with it: the store watcher, in-flight cascade work, and the
// optional database handle.
type Application struct {
	Server *http.Server

	tracker     *usecase.TrackerService
	processor   *usecase.CascadeProcessor
	watcherStop context.CancelFunc
	watcherDone chan struct{}
	db          *sqlx.DB
	logger      *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	teams := memory.NewTeamStore()
	matches := memory.NewMatchStore()
	players := memory.NewPlayerStore()

	gateway := opendota.NewClient(opendota.ClientConfig{
		BaseURL:    cfg.OpenDotaBaseURL,
		APIKey:     cfg.OpenDotaAPIKey,
		Timeout:    cfg.OpenDotaTimeout,
		MaxRetries: cfg.OpenDotaMaxRetries,
		CacheTTL:   cfg.OpenDotaCacheTTL,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OpenDotaCircuitEnabled,
			FailureThreshold: cfg.OpenDotaCircuitFailureCount,
			OpenTimeout:      cfg.OpenDotaCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OpenDotaCircuitHalfOpenMaxReq,
		},
	})

	processor := usecase.NewCascadeProcessor(gateway, matches, players, logger)

	var (
		db     *sqlx.DB
		roster usecase.RosterStore
	)
	if cfg.DBEnabled {
		var err error
		db, err = openDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		roster = postgres.NewRosterRepository(db)
	}

	tracker, err := usecase.NewTrackerService(usecase.TrackerServiceParams{
		Teams:         teams,
		Matches:       matches,
		Players:       players,
		Registry:      abort.NewRegistry(),
		Gateway:       gateway,
		Processor:     processor,
		PlayerFetcher: processor,
		Roster:        roster,
		Selection:     memory.NewSelectionStore(),
		Logger:        logger,
		FetchWorkers:  cfg.FetchWorkers,
	})
	if err != nil {
		closeDB(db, logger)
		return nil, fmt.Errorf("build tracker service: %w", err)
	}

	if roster != nil {
		if err := tracker.Bootstrap(ctx); err != nil {
			closeDB(db, logger)
			return nil, fmt.Errorf("bootstrap tracked teams: %w", err)
		}
	}

	application := &Application{
		tracker:   tracker,
		processor: processor,
		db:        db,
		logger:    logger,
	}

	if cfg.WatcherEnabled {
		watcher := usecase.NewWatcher(teams, matches, players, logger)
		watcherCtx, stop := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			watcher.Run(watcherCtx)
		}()
		// One eager sweep so bootstrapped records settle without waiting
		// for the first store signal.
		watcher.Sweep()
		application.watcherStop = stop
		application.watcherDone = done
	}

	handler := httpapi.NewHandler(tracker, matches, players, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	application.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if application.Server.Addr == "" {
		application.close(ctx)
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return application, nil
}

// Shutdown drains the HTTP server, stops the watcher, and waits for
// in-flight cascade work before closing the database.
func (a *Application) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if a.Server != nil {
		shutdownErr = a.Server.Shutdown(ctx)
	}
	a.close(ctx)
	return shutdownErr
}

func (a *Application) close(ctx context.Context) {
	if a.watcherStop != nil {
		a.watcherStop()
		select {
		case <-a.watcherDone:
		case <-ctx.Done():
			a.logger.Warn("watcher did not stop before deadline")
		}
		a.watcherStop = nil
	}

	if a.tracker != nil {
		a.tracker.Wait()
	}
	if a.processor != nil {
		a.processor.Wait()
	}

	closeDB(a.db, a.logger)
	a.db = nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.ConnectContext(ctx, "postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return db, nil
}

func closeDB(db *sqlx.DB, logger *logging.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("close database", "error", err)
	}
}
