// Package observability builds the zap loggers used across the assistant.
//
// NewLogger picks a JSON production encoder or a console development encoder.
// WithRequest derives a logger tagged with the chi request id of an HTTP
// request so pipeline stages can be correlated in the logs.
package observability
