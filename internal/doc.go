// Package internal holds the request dispatch and deployment core of the
// comment server.
//
// Requests enter through a chain of Stages (see Chain) whose outermost
// element is LocalContext. The innermost element is the Dispatcher: it binds
// the request to a route (Bind returns an explicit MatchResult), invokes the
// handler with a buffered Context and translates the outcome into a single
// response.
//
// How the chain is served is decided once at startup by SelectModel from the
// listen address, the hosting environment and server.execution. The chosen
// Model owns the listener, graceful shutdown and shutdown hooks.
package internal
