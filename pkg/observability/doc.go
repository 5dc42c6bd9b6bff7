// Package observability provides structured logging and Prometheus metrics
// for the CipherHub services.
//
// Logging uses stdlib slog with a JSON handler. Loggers are value types;
// WithField/WithError return derived loggers and never mutate the receiver.
//
// Metrics are registered against an explicit *prometheus.Registry passed in
// by the binary, never against the global default registry.
package observability
