package internal

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// WorkerFDEnv names the inherited listener descriptor in worker processes.
const WorkerFDEnv = "ISSO_WORKER_FD"

const (
	workerListenerFD   = 3 // first entry of exec.Cmd.ExtraFiles
	workerRestartDelay = time.Second
)

// IsWorker reports whether this process was started by a worker pool.
func IsWorker() bool {
	return os.Getenv(WorkerFDEnv) != ""
}

// WorkerListener rebuilds the listener inherited from the supervising process.
func WorkerListener() (net.Listener, error) {
	fd, err := strconv.Atoi(os.Getenv(WorkerFDEnv))
	if err != nil {
		return nil, ErrNotWorker
	}
	f := os.NewFile(uintptr(fd), "isso-listener")
	if f == nil {
		return nil, ErrNotWorker
	}
	defer f.Close()
	return net.FileListener(f)
}

// workerPool binds the listening socket once and re-executes the current
// program as workers that share it. Crashed workers are restarted until the
// pool is stopped.
type workerPool struct {
	address    string
	executable string
	args       []string
	workers    int
	cfg        ModelConfig
}

func newWorkerPool(cfg ModelConfig) (*workerPool, error) {
	network, address, err := ParseListen(cfg.Listen)
	if err != nil {
		return nil, err
	}
	if network != "tcp" {
		return nil, ErrInvalidListen
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &workerPool{
		address:    address,
		executable: exe,
		args:       os.Args[1:],
		workers:    workers,
		cfg:        cfg,
	}, nil
}

func (p *workerPool) Kind() Kind {
	return MultiProcess
}

// Serve supervises workers in the parent and serves requests in a worker.
func (p *workerPool) Serve(ctx context.Context, h http.Handler) error {
	if IsWorker() {
		ln, err := WorkerListener()
		if err != nil {
			return err
		}
		return serveListener(ctx, ln, h, p.cfg)
	}
	return p.supervise(ctx)
}

func (p *workerPool) supervise(ctx context.Context) error {
	log := p.cfg.logger()

	ln, err := net.Listen("tcp", p.address)
	if err != nil {
		return err
	}
	defer ln.Close()

	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return ErrInvalidListen
	}
	f, err := tl.File()
	if err != nil {
		return err
	}
	defer f.Close()

	log.Info("worker pool starting",
		slog.String("address", ln.Addr().String()),
		slog.Int("workers", p.workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.workers {
		g.Go(func() error {
			return p.runWorker(gctx, i, f)
		})
	}
	errs := []error{g.Wait()}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.cfg.shutdownTimeout())
	defer cancel()
	for _, hook := range p.cfg.ShutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			log.Error("shutdown hook failed", logger.Error(err))
			errs = append(errs, err)
		}
	}

	log.Info("worker pool stopped")
	return errors.Join(errs...)
}

func (p *workerPool) runWorker(ctx context.Context, id int, listener *os.File) error {
	log := p.cfg.logger().With(slog.Int("worker", id))

	for {
		cmd := exec.CommandContext(ctx, p.executable, p.args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.ExtraFiles = []*os.File{listener}
		cmd.Env = append(os.Environ(), p.cfg.WorkerEnv...)
		cmd.Env = append(cmd.Env, WorkerFDEnv+"="+strconv.Itoa(workerListenerFD))
		cmd.Cancel = func() error {
			return cmd.Process.Signal(syscall.SIGTERM)
		}
		cmd.WaitDelay = p.cfg.shutdownTimeout()

		if err := cmd.Start(); err != nil {
			return err
		}
		log.Debug("worker started", slog.Int("pid", cmd.Process.Pid))

		err := cmd.Wait()
		if ctx.Err() != nil {
			return nil
		}
		log.Error("worker exited, restarting", slog.Int("pid", cmd.Process.Pid), logger.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(workerRestartDelay):
		}
	}
}
