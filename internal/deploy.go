package internal

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrInvalidListen = errors.New("deploy: invalid listen address")
	ErrStaleSocket   = errors.New("deploy: socket path exists and is not a socket")
	ErrUnknownModel  = errors.New("deploy: unknown deployment model")
	ErrNotWorker     = errors.New("deploy: process was not started as a worker")
)

// Kind identifies a deployment model.
type Kind string

const (
	// Threaded serves all connections from one process, one goroutine each.
	Threaded Kind = "threaded"
	// MultiProcess binds once and serves from several worker processes.
	MultiProcess Kind = "multiprocess"
	// Embedded hands requests over from a managed runtime (AWS Lambda).
	Embedded Kind = "embedded"
	// UnixSocket serves HTTP on a unix domain socket.
	UnixSocket Kind = "unix"
)

// ExecutionMode is the configured server.execution value.
type ExecutionMode string

const (
	ExecutionUnset      ExecutionMode = ""
	ExecutionGoroutines ExecutionMode = "goroutines"
	ExecutionProcesses  ExecutionMode = "processes"
)

// ParseExecutionMode maps a config value to an ExecutionMode.
func ParseExecutionMode(s string) ExecutionMode {
	switch ExecutionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ExecutionGoroutines:
		return ExecutionGoroutines
	case ExecutionProcesses:
		return ExecutionProcesses
	default:
		return ExecutionUnset
	}
}

const (
	lambdaFunctionEnv = "AWS_LAMBDA_FUNCTION_NAME"
	standaloneProgram = "isso"
)

// Environment is what the process knows about how it was started.
type Environment struct {
	Listen    string
	Execution ExecutionMode
	Program   string
	Embedded  bool
}

// Standalone reports whether the service runs as its own program without an
// explicit execution mode.
func (e Environment) Standalone() bool {
	return e.Execution == ExecutionUnset && e.Program == standaloneProgram
}

// DetectEnvironment inspects the process for the facts SelectModel needs.
func DetectEnvironment(listen string, execution ExecutionMode) Environment {
	return Environment{
		Listen:    listen,
		Execution: execution,
		Program:   strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe"),
		Embedded:  os.Getenv(lambdaFunctionEnv) != "",
	}
}

// SelectModel picks exactly one deployment model. A unix:// listen address
// wins, then a managed runtime, then an in-process goroutine server when
// asked for (or when running standalone), and otherwise worker processes.
func SelectModel(env Environment) Kind {
	switch {
	case strings.HasPrefix(env.Listen, "unix://"):
		return UnixSocket
	case env.Embedded:
		return Embedded
	case env.Execution == ExecutionGoroutines, env.Standalone():
		return Threaded
	default:
		return MultiProcess
	}
}

// ParseListen splits server.listen into a network and an address.
// http://host:port and bare host:port map to tcp; unix:///path maps to unix.
func ParseListen(listen string) (network, address string, err error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return "", "", ErrInvalidListen
	}
	if strings.HasPrefix(listen, "unix://") {
		path := strings.TrimPrefix(listen, "unix://")
		if path == "" {
			return "", "", ErrInvalidListen
		}
		return "unix", path, nil
	}
	if !strings.Contains(listen, "://") {
		listen = "http://" + listen
	}
	u, err := url.Parse(listen)
	if err != nil {
		return "", "", errors.Join(ErrInvalidListen, err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return "", "", ErrInvalidListen
	}
	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
	}
	return "tcp", net.JoinHostPort(host, port), nil
}

// Model serves a handler until ctx is cancelled or serving fails.
type Model interface {
	Kind() Kind
	Serve(ctx context.Context, h http.Handler) error
}

// ModelConfig carries the settings shared by all deployment models.
type ModelConfig struct {
	Logger          *slog.Logger
	Listen          string
	WorkerEnv       []string
	ShutdownHooks   []func(context.Context) error
	Workers         int
	MaxConnections  int
	ShutdownTimeout time.Duration
}

// NewModel builds the model of the given kind.
func NewModel(kind Kind, cfg ModelConfig) (Model, error) {
	switch kind {
	case Threaded:
		return newThreadedServer(cfg)
	case MultiProcess:
		return newWorkerPool(cfg)
	case UnixSocket:
		return newUnixServer(cfg)
	case Embedded:
		return newLambdaModel(cfg), nil
	default:
		return nil, ErrUnknownModel
	}
}
