package isso

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/internal/config"
	"github.com/dmitrymomot/isso/pkg/logger"
)

// Run selects the deployment model, probes the configured hosts and serves
// until ctx is cancelled or the process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := internal.DetectEnvironment(
		a.cfg.String("server", "listen"),
		internal.ParseExecutionMode(a.cfg.String("server", "execution")),
	)
	kind := internal.SelectModel(env)
	worker := internal.IsWorker()

	log := a.logger.With(slog.String("model", string(kind)))
	if worker {
		log = log.With(slog.Int("pid", os.Getpid()))
	}

	if !worker && kind != Embedded {
		a.Probe(ctx)
	}

	model, err := internal.NewModel(kind, internal.ModelConfig{
		Logger:          log,
		Listen:          env.Listen,
		WorkerEnv:       []string{config.SessionKeyEnv + "=" + a.cfg.String("general", "session-key")},
		ShutdownHooks:   a.shutdownHooks,
		Workers:         a.cfg.Int("server", "workers"),
		MaxConnections:  a.cfg.Int("server", "max-connections"),
		ShutdownTimeout: a.cfg.Duration("server", "shutdown-timeout"),
	})
	if err != nil {
		return errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		err := model.Serve(gctx, a.handler)
		if kind == Embedded {
			err = errors.Join(err, a.Close(context.WithoutCancel(gctx)))
		}
		return err
	})

	if a.cfg.Bool("moderation", "enabled") && !worker && kind != Embedded {
		sched := internal.NewScheduler(log)
		sched.Every("purge", purgeInterval, a.Purge)
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	servesRequests := kind != MultiProcess || worker
	if a.mail != nil && servesRequests {
		g.Go(func() error {
			return a.mail.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		return err
	}
	return nil
}
