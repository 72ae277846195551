// Package api exposes the configuration resolver over HTTP.
//
// # Overview
//
// The server mounts a small versioned REST surface on top of the resolver:
//
//	GET  /api/v1/config/{key}   resolve one key (type, default query params)
//	GET  /api/v1/config?prefix= resolve a whole section
//	GET  /api/v1/environment    detected environment and registry id
//	GET  /api/v1/environments   all registered environments
//	POST /api/v1/cache/flush    drop value and environment-id caches
//	GET  /healthz               dependency health
//	GET  /metrics               Prometheus metrics (when enabled)
//
// # Headers
//
// X-Actor identifies the caller and flows into audit events. X-Request-ID is
// honored when present and generated otherwise. X-Internal-Caller: true opts
// out of response sanitization; without it INTERNAL and CONFIDENTIAL values
// are masked per their sensitivity tier.
package api
