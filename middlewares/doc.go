// Package middlewares provides the request pipeline pieces of the comment
// server.
//
// Stages wrap the whole application (see internal.Chain) and run in this
// order from the outside in:
//
//	internal.LocalContext  request-local state
//	Profile.Stage          per-route timings, only with server.profile
//	Static                 /js and /css assets
//	CORS                   cross-origin headers for the configured sites
//	SubURI                 X-Script-Name mount prefix
//	ProxyFix               X-Forwarded-* from the reverse proxy
//
// Route-level middleware wraps individual handlers:
//
//	RequestID   tags the request and its log records with an ID
//	EditToken   verifies the signed cookie that authorizes comment edits
package middlewares
