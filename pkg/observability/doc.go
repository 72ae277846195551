// Package observability provides structured logging, Prometheus metrics,
// and health checking for the strata configuration service.
package observability
