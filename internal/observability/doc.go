// Package observability provides structured logging for the dispatch service.
//
// Loggers are zap-based. A request-scoped logger carrying the chi request ID
// travels in the request context so that handler and dispatch log lines for
// one HTTP call can be correlated.
package observability
