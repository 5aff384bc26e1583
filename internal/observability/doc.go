// Package observability builds the zap logger shared by every component of
// the gateway and carries request-scoped fields into log lines.
package observability
