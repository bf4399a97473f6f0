package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"estoque-monitor/internal/alerting"
	"estoque-monitor/internal/config"
	"estoque-monitor/internal/scheduler"
	"estoque-monitor/internal/service"
	"estoque-monitor/internal/snapshot"
	"estoque-monitor/internal/storage"
	"estoque-monitor/internal/summary"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newSummarizer() snapshot.Summarizer {
	cfg := a.Config.Summarizer
	if !cfg.Enabled {
		return snapshot.NoopSummarizer{}
	}
	if cfg.APIKey == "" {
		a.Logger.Warn().Msg("summarizer.api_key not configured; llm_summary disabled")
		return snapshot.NoopSummarizer{}
	}
	return summary.New(summary.Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	var sampleStore storage.SampleStore
	var snapshotStore storage.SnapshotStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		snapshotStore = store
		alertStore = store
	}

	return service.New(a.Config, sampleStore, snapshotStore, alertStore, a.newNotifier(), a.newSummarizer(), a.Logger)
}

// Run executes a single analysis cycle.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store)
	snap, err := svc.RunCycle(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("window_start", snap.Window.Start).
		Str("window_end", snap.Window.End).
		Str("next_report_due", snap.NextReportDue).
		Msg("análise quinzenal concluída")
	return nil
}

// Schedule runs analysis cycles unattended on the configured interval,
// holding the advisory lock so concurrent replicas skip each other's
// cycles.
func (a *App) Schedule(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store)

	var locker storage.AdvisoryLocker
	if store != nil {
		locker = store
	}
	lockKey := a.Config.Scheduler.AdvisoryLockKey

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting scheduled monitoring")
	err = sched.Run(ctx, func(ctx context.Context, cycle time.Time) error {
		if locker != nil && lockKey != 0 {
			unlock, acquired, lockErr := locker.TryAdvisoryLock(ctx, lockKey)
			if lockErr != nil {
				return fmt.Errorf("acquire advisory lock: %w", lockErr)
			}
			if !acquired {
				a.Logger.Debug().Time("cycle", cycle).Msg("skip cycle because advisory lock held elsewhere")
				return nil
			}
			defer unlock()
		}
		_, runErr := svc.RunCycle(ctx)
		return runErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduled monitoring stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting one metric's history.
type ExportOptions struct {
	Metric    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
