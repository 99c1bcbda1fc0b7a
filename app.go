package isso

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/internal/config"
	"github.com/dmitrymomot/isso/internal/notify"
	"github.com/dmitrymomot/isso/internal/storage"
	"github.com/dmitrymomot/isso/internal/views"
	"github.com/dmitrymomot/isso/middlewares"
	"github.com/dmitrymomot/isso/pkg/cache"
	"github.com/dmitrymomot/isso/pkg/logger"
	"github.com/dmitrymomot/isso/pkg/signer"
)

const (
	probeTimeout   = 5 * time.Second
	purgeInterval  = time.Hour
	guardWindow    = time.Minute
	countKeyPrefix = "isso:count"

	sentryFlushTimeout = 2 * time.Second
)

// App is the assembled comment service: configuration, collaborators and
// the request pipeline. It is immutable after New.
type App struct {
	cfg           *config.Config
	logger        *slog.Logger
	store         storage.Store
	signer        *signer.Signer
	signal        *notify.Signal
	mail          *notify.Mail
	counts        *cache.Loader[int]
	dispatcher    *internal.Dispatcher
	profile       *middlewares.Profile
	assets        fs.FS
	client        *http.Client
	handler       http.Handler
	shutdownHooks []func(ctx context.Context) error
}

// New wires every collaborator from cfg. Failures to open storage or the
// count cache are fatal; notification settings fall back to logging only.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		client: &http.Client{Timeout: probeTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = newLogger(cfg)
	}

	if a.store == nil {
		store, err := storage.Open(ctx, cfg.String("general", "dbpath"), storage.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	a.shutdownHooks = append(a.shutdownHooks, storage.Shutdown(a.store))

	s, err := signer.New(cfg.String("general", "session-key"))
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	a.signer = s

	a.signal = notify.NewSignal(a.logger)
	a.signal.Add(notify.NewStdout(a.logger))
	if a.mail = newMail(cfg, a.logger); a.mail != nil {
		a.signal.Add(a.mail)
	}

	if err := a.setupCountCache(ctx); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}

	if a.assets == nil {
		a.assets = os.DirFS(cfg.String("server", "assets"))
	}

	a.setupDispatcher()
	a.handler = a.chain()

	if cfg.String("sentry", "dsn") != "" {
		a.shutdownHooks = append(a.shutdownHooks, logger.FlushSentry(sentryFlushTimeout))
	}
	return a, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.String("general", "log-level"))),
		logger.WithFormat(logger.ParseFormat(cfg.String("general", "log-format"))),
		logger.WithExtractors(middlewares.RequestIDExtractor()),
	}
	return logger.NewWithSentry(logger.SentryConfig{
		DSN:         cfg.String("sentry", "dsn"),
		Environment: cfg.String("sentry", "environment"),
		Release:     "isso@" + Version,
		MinLevel:    slog.LevelError,
	}, opts...)
}

func newMail(cfg *config.Config, l *slog.Logger) *notify.Mail {
	var sender notify.Sender
	switch backend := cfg.String("general", "notify"); backend {
	case "smtp":
		sender = notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.String("smtp", "host"),
			Port:     cfg.Int("smtp", "port"),
			Username: cfg.String("smtp", "username"),
			Password: cfg.String("smtp", "password"),
			From:     cfg.String("smtp", "from"),
		})
	case "resend":
		sender = notify.NewResend(notify.ResendConfig{
			APIKey: cfg.String("resend", "api-key"),
			From:   cfg.String("smtp", "from"),
		})
	case "", "stdout":
		return nil
	default:
		l.Warn("unknown notification backend, falling back to stdout", slog.String("notify", backend))
		return nil
	}

	return notify.NewMail(sender, notify.MailConfig{
		From: cfg.String("smtp", "from"),
		To:   cfg.List("smtp", "to"),
	}, l)
}

func (a *App) setupCountCache(ctx context.Context) error {
	ttl := a.cfg.Duration("cache", "ttl")

	var c cache.Cache[int]
	if url := a.cfg.String("cache", "redis-url"); url != "" {
		client, err := cache.OpenRedis(ctx, url)
		if err != nil {
			return err
		}
		a.shutdownHooks = append(a.shutdownHooks, closeRedis(client))
		c = cache.NewRedis[int](client, nil,
			cache.WithPrefix(countKeyPrefix),
			cache.WithRedisTTL(ttl),
		)
	} else {
		c = cache.NewMemory[int](cache.WithTTL(ttl))
	}
	a.shutdownHooks = append(a.shutdownHooks, func(context.Context) error { return c.Close() })

	a.counts = cache.NewLoader(c)
	a.signal.On(func(ctx context.Context, e notify.Event) error {
		return a.counts.Invalidate(ctx, e.URI)
	}, notify.CommentNew, notify.CommentEdit, notify.CommentDelete)
	return nil
}

func closeRedis(client redis.UniversalClient) func(context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}

func (a *App) setupDispatcher() {
	moderated := a.cfg.Bool("moderation", "enabled")

	commentOpts := []views.Option{
		views.WithSignal(a.signal),
		views.WithCountCache(a.counts),
		views.WithModeration(moderated),
		views.WithMaxAge(a.cfg.Duration("general", "max-age")),
	}
	if a.cfg.Bool("guard", "enabled") {
		commentOpts = append(commentOpts, views.WithGuard(
			views.NewGuard(a.cfg.Int("guard", "ratelimit"), guardWindow, nil),
		))
	}

	handlers := []internal.Handler{
		&views.Info{Moderation: moderated},
		views.NewComments(a.store, a.signer, commentOpts...),
	}
	if a.cfg.Bool("server", "profile") {
		a.profile = middlewares.NewProfile()
		handlers = append(handlers, a.profile)
	}

	a.dispatcher = internal.NewDispatcher(
		internal.WithLogger(a.logger),
		internal.WithOrigins(a.cfg.List("general", "host")...),
		internal.WithMiddleware(middlewares.RequestID()),
		internal.WithHealthChecks(
			internal.WithReadinessCheck("storage", a.store.Ping),
		),
		internal.WithHandlers(handlers...),
	)
}

// chain wraps the dispatcher in the fixed stage order, innermost first.
func (a *App) chain() http.Handler {
	var profile internal.Stage
	if a.profile != nil {
		profile = a.profile.Stage
	}
	origins := a.dispatcher.Origins()

	return internal.Chain(a.dispatcher,
		internal.LocalContext,
		profile,
		middlewares.Static(a.assets),
		middlewares.CORS(
			middlewares.WithAllowOriginFunc(origins.Allowed),
			middlewares.WithAllowCredentials(),
		),
		middlewares.SubURI,
		middlewares.ProxyFix,
	)
}

// Handler returns the complete request pipeline.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Dispatcher returns the innermost request dispatcher.
func (a *App) Dispatcher() *internal.Dispatcher {
	return a.dispatcher
}

// Store returns the storage collaborator.
func (a *App) Store() storage.Store {
	return a.store
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Probe checks that at least one configured host answers HTTP. Hosts are
// tried in order with a HEAD request and the first one to respond wins.
// An unreachable site only produces a warning.
func (a *App) Probe(ctx context.Context) (string, bool) {
	hosts := a.dispatcher.Origins().Hosts()
	for _, host := range hosts {
		if a.reachable(ctx, host) {
			a.logger.InfoContext(ctx, "connected to website", slog.String("host", host))
			return host, true
		}
	}
	a.logger.WarnContext(ctx, "unable to connect to your website, comments will probably not work; make sure the service can reach it via HTTP(S)",
		slog.Any("hosts", hosts),
	)
	return "", false
}

func (a *App) reachable(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, host+"/", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.DebugContext(ctx, "host probe failed", slog.String("host", host), logger.Error(err))
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Purge deletes pending comments older than moderation.purge-after.
func (a *App) Purge(ctx context.Context) error {
	n, err := a.store.Purge(ctx, a.cfg.Duration("moderation", "purge-after"))
	if err != nil {
		return errors.Join(errors.New("purge pending comments"), err)
	}
	if n > 0 {
		a.logger.InfoContext(ctx, "purged pending comments", slog.Int64("count", n))
	}
	return nil
}

// Close runs the shutdown hooks. Run calls them itself; Close is for an
// App that was never run.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, hook := range a.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
