// Package isso assembles the comment service: it reads the configuration,
// opens storage, wires notifications and the count cache, and builds the
// request pipeline around the dispatcher.
//
// # Quick Start
//
//	cfg, err := config.Load("/etc/isso.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app, err := isso.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Request Pipeline
//
// Requests pass through the stages outermost first:
//
//	ProxyFix -> SubURI -> CORS -> Static -> Profile -> LocalContext -> Dispatcher
//
// ProxyFix honors X-Forwarded-For. SubURI strips the X-Script-Name prefix.
// CORS only echoes origins listed in general.host. Static serves /js/ and
// /css/ from server.assets. Profile is present when server.profile is set.
// LocalContext binds the per-request Local before dispatch.
//
// # Deployment Models
//
// Run picks exactly one model from the environment:
//
//   - [UnixSocket] when server.listen is a unix:// address
//   - [Embedded] when started by the AWS Lambda runtime
//   - [Threaded] when server.execution is "goroutines" or the binary runs standalone
//   - [MultiProcess] otherwise, re-executing the binary as workers
//
// Outside the embedded model the configured hosts are probed once at
// startup. An unreachable site is logged as a warning and does not stop the
// server.
//
// # Background Work
//
// With moderation enabled, pending comments older than
// moderation.purge-after are purged hourly. Mail notifications are queued by
// request handlers and delivered in the background of every process that
// serves requests.
package isso
