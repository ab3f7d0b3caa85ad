package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/subwatch/internal/events"
	"github.com/desertthunder/subwatch/internal/jobcache"
	"github.com/desertthunder/subwatch/internal/repositories"
	"github.com/desertthunder/subwatch/internal/services"
	"github.com/desertthunder/subwatch/internal/shared"
	"github.com/desertthunder/subwatch/internal/socket"
	"github.com/desertthunder/subwatch/internal/tasks"
	"github.com/desertthunder/subwatch/internal/ui"
)

// drainTimeout bounds how long shutdown waits for in-flight background
// tasks once the dashboard closes.
const drainTimeout = 10 * time.Second

// Watch runs the live dashboard: push channel, reducer, and TUI.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if r.config.Backend.APIKey == "" {
		return fmt.Errorf("%w: set backend.api_key in config.toml", shared.ErrMissingAPIKey)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var journal events.Journal
	if !cmd.Bool("no-journal") {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			r.logger.Warn("journal database unavailable, continuing without history", "error", err)
		} else {
			defer db.Close()
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
			if err := shared.RunMigrations(db); err != nil {
				r.logger.Warn("journal migrations failed, continuing without history", "error", err)
			} else {
				journal = repositories.NewJobHistoryRepository(db)
			}
		}
	}

	perSecond := r.config.Cache.RefetchPerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := r.config.Cache.RefetchBurst
	if burst <= 0 {
		burst = 10
	}

	capacity := r.config.Cache.JobCapacity
	if capacity <= 0 {
		capacity = jobcache.DefaultCapacity
	}

	reducer := events.NewContext(events.ContextOpts{
		Jobs:    jobcache.New(capacity, r.logger),
		API:     r.api,
		Journal: journal,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		Logger:  r.logger,
	})

	transport, err := services.NewPushSocket(r.config.Backend, r.config.Socket, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build push channel: %w", err)
	}
	listener := socket.NewListener(transport, reducer, r.logger)
	dispatcher := tasks.NewDispatcher(r.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.primeJobs(runCtx, reducer)

	transportDone := make(chan struct{})
	go func() {
		transport.Run(runCtx)
		close(transportDone)
	}()

	listenerDone := make(chan struct{})
	go func() {
		listener.Run(runCtx)
		close(listenerDone)
	}()

	model := ui.NewModel(runCtx, reducer, listener, dispatcher, r.api)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		cancel()
		return fmt.Errorf("error running dashboard: %w", err)
	}

	cancel()
	<-transportDone
	<-listenerDone
	reducer.Flush()

	guard := dispatcher.Guard()
	if guard() == tasks.Block {
		r.logger.Info("waiting for background tasks to finish")
		drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
		defer drainCancel()
		if err := dispatcher.Wait(drainCtx); err != nil {
			r.logger.Warn("background tasks did not drain in time", "error", err)
		}
	}
	dispatcher.Close()

	return nil
}

// primeJobs seeds the cache with the backend's current queue so the
// dashboard is populated before the first push event lands. Best-effort: a
// failure leaves the cache empty and the push channel fills it in.
func (r *Runner) primeJobs(ctx context.Context, reducer *events.Context) {
	records, err := r.api.ListJobs(ctx)
	if err != nil {
		r.logger.Warn("failed to prime job cache", "error", err)
		return
	}

	now := time.Now()
	for _, record := range records {
		reducer.Jobs.ApplyFetched(record.JobID, record.AsUpdate(now))
	}
	r.logger.Info("primed job cache", "jobs", len(records))
}
