package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/strata/pkg/httputil"
	"github.com/platinummonkey/strata/pkg/observability"
)

// ActorHeader carries the identity of the caller, recorded in audit events.
const ActorHeader = "X-Actor"

// RequestIDHeader carries the request ID, generated when absent.
const RequestIDHeader = "X-Request-ID"

// requestContextMiddleware attaches the request ID and actor to the request context
func (s *Server) requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := observability.WithRequestID(r.Context(), requestID)
		if actor := r.Header.Get(ActorHeader); actor != "" {
			ctx = observability.WithActor(ctx, actor)
		}
		ctx = observability.WithLogger(ctx, s.logger.WithField("request_id", requestID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observeMiddleware logs each request and records HTTP metrics
func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := httputil.NewStatusRecorder(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, path, rw.Status, duration)
		}
		observability.FromContext(r.Context()).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.Status,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("handled request")
	})
}
