// Package bot wires storage, services, and the chat transport into a
// runnable application and owns its lifecycle.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mpetrov/cardkeeper/internal/chat"
	"github.com/mpetrov/cardkeeper/internal/config"
	"github.com/mpetrov/cardkeeper/internal/console"
	"github.com/mpetrov/cardkeeper/internal/logging"
	"github.com/mpetrov/cardkeeper/internal/repositories/repomanager"
	"github.com/mpetrov/cardkeeper/internal/services"
)

// Abandoned form sessions are swept once they have been idle this long.
const (
	sessionMaxIdle   = 48 * time.Hour
	sessionSweepTick = time.Hour
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	repos     repomanager.RepositoryManager
	router    *chat.Router
	transport chat.Transport
}

// NewApp opens the database for the configured DSN, applies migrations, and
// wires the services behind a console transport.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewDefault(cfg.LogLevel)

	m, driver := repomanager.ForDSN(cfg.DatabaseDSN)
	db, err := sql.Open(driver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == "sqlite" {
		// A single connection serializes writers; the busy handler is not
		// configured, so concurrent writes would surface as SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	cards := services.NewCardService(db, m, logger)
	form := services.NewFormService(db, m, cards, logger)

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		repos:     m,
		router:    chat.NewRouter(cards, form, logger),
		transport: console.New(cfg.ConsoleUserID, os.Stdin, os.Stdout),
	}, nil
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

// Run serves updates until the context is cancelled or the transport's input
// is exhausted, sweeping idle sessions in the background.
func (app *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info(ctx, "starting bot", "user_id", app.config.ConsoleUserID)
	app.initSignalHandler(cancel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweepIdleSessions(ctx)
	}()

	if err := app.transport.Run(ctx, app.router.Handle); err != nil {
		app.logger.Error(ctx, "transport stopped", "error", err)
	}
	cancel()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "bot stopped")
}

func (app *App) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sweepOnce(ctx)
		}
	}
}

// sweepOnce drops sessions that have been idle longer than sessionMaxIdle.
func (app *App) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-sessionMaxIdle)
	n, err := app.repos.Sessions(app.db).DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		app.logger.Error(ctx, "sweeping idle sessions", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "swept idle sessions", "count", n)
	}
}
