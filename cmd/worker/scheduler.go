package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/rafabene/avantpro-avatars/internal/bootstrap"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

// cronLogger adapta ports.Logger para cron.Logger
type cronLogger struct {
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// job é uma tarefa agendada
type job struct {
	name     string
	schedule string
	run      func(context.Context) (any, error)
}

// newScheduler registra os jobs num cron que pula execuções sobrepostas
func newScheduler(ctx context.Context, logger ports.Logger, jobs ...job) (*cron.Cron, error) {
	clog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	for _, j := range jobs {
		if _, err := c.AddFunc(j.schedule, func() {
			report, err := j.run(ctx)
			if err != nil {
				logger.Error("scheduled job failed", "job", j.name, "error", err)
				return
			}
			logger.Info("scheduled job finished", "job", j.name, "report", report)
		}); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", j.schedule, j.name, err)
		}
		logger.Info("job scheduled", "job", j.name, "schedule", j.schedule)
	}

	return c, nil
}

// runScheduler bloqueia até o contexto ser cancelado, esperando o job em andamento
func runScheduler(ctx context.Context, app *bootstrap.App) error {
	c, err := newScheduler(ctx, app.Logger,
		job{
			name:     "consistency_sweep",
			schedule: app.Config.Sweeper.Schedule,
			run: func(ctx context.Context) (any, error) {
				return app.Sweeper.EnsureConsistency(ctx)
			},
		},
		job{
			name:     "stale_gravatar_refresh",
			schedule: app.Config.Sweeper.StaleRefreshSchedule,
			run: func(ctx context.Context) (any, error) {
				return app.StaleRefresher.RefreshStale(ctx)
			},
		},
	)
	if err != nil {
		return err
	}

	c.Start()
	app.Logger.Info("worker started")

	<-ctx.Done()
	<-c.Stop().Done()

	app.Logger.Info("worker stopped")
	return nil
}
