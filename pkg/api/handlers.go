package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/platinummonkey/strata/pkg/classify"
	"github.com/platinummonkey/strata/pkg/httputil"
	"github.com/platinummonkey/strata/pkg/observability"
)

// InternalCallerHeader marks a caller as internal; internal callers receive
// unsanitized values.
const InternalCallerHeader = "X-Internal-Caller"

// ConfigResponse is the resolution result for a single key
type ConfigResponse struct {
	Key         string        `json:"key"`
	Value       interface{}   `json:"value"`
	Type        string        `json:"type"`
	Tier        classify.Tier `json:"tier"`
	Environment string        `json:"environment"`
}

// SectionResponse is the resolution result for a key prefix
type SectionResponse struct {
	Prefix      string            `json:"prefix"`
	Environment string            `json:"environment"`
	Values      map[string]string `json:"values"`
}

// EnvironmentResponse describes the currently detected environment
type EnvironmentResponse struct {
	Environment   string `json:"environment"`
	EnvironmentID *int64 `json:"environment_id,omitempty"`
	Registered    bool   `json:"registered"`
}

func isInternalCaller(r *http.Request) bool {
	internal, _ := strconv.ParseBool(r.Header.Get(InternalCallerHeader))
	return internal
}

// getConfig resolves a single key through the fallback chain.
// Query params: type (string|integer|boolean, default string), default.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	ctx := r.Context()
	typ := httputil.ParseQueryString(r, "type", "string")
	def := httputil.ParseQueryString(r, "default", "")

	var value interface{}
	switch typ {
	case "string":
		value = s.resolver.GetString(ctx, key, def)
	case "integer":
		defInt := 0
		if def != "" {
			parsed, err := strconv.Atoi(def)
			if err != nil {
				httputil.WriteBadRequest(w, fmt.Sprintf("invalid integer default: %s", def))
				return
			}
			defInt = parsed
		}
		value = s.resolver.GetInteger(ctx, key, defInt)
	case "boolean":
		defBool := false
		if def != "" {
			parsed, err := strconv.ParseBool(def)
			if err != nil {
				httputil.WriteBadRequest(w, fmt.Sprintf("invalid boolean default: %s", def))
				return
			}
			defBool = parsed
		}
		value = s.resolver.GetBoolean(ctx, key, defBool)
	default:
		httputil.WriteBadRequest(w, fmt.Sprintf("unsupported type: %s (must be string, integer or boolean)", typ))
		return
	}

	tier := classify.Classify(key)
	if !isInternalCaller(r) && tier != classify.TierPublic {
		value = classify.Sanitize(fmt.Sprintf("%v", value), tier)
	}

	httputil.WriteSuccess(w, ConfigResponse{
		Key:         key,
		Value:       value,
		Type:        typ,
		Tier:        tier,
		Environment: s.resolver.Detector().CurrentEnvironment(ctx),
	})
}

// getSection resolves every key under a prefix. Values are sanitized per
// sensitivity tier unless the caller is internal.
func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	prefix := httputil.ParseQueryString(r, "prefix", "")
	if !httputil.RequireNonEmpty(w, prefix, "prefix") {
		return
	}

	ctx := r.Context()
	values := s.resolver.GetSection(ctx, prefix)

	if !isInternalCaller(r) {
		for suffix, value := range values {
			tier := classify.Classify(prefix + suffix)
			values[suffix] = classify.Sanitize(value, tier)
		}
	}

	httputil.WriteSuccess(w, SectionResponse{
		Prefix:      prefix,
		Environment: s.resolver.Detector().CurrentEnvironment(ctx),
		Values:      values,
	})
}

// getEnvironment reports the detected environment and its registry id
func (s *Server) getEnvironment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := s.resolver.Detector().CurrentEnvironment(ctx)

	resp := EnvironmentResponse{Environment: code}
	if id, ok := s.resolver.Environments().ResolveEnvironmentID(ctx, code); ok {
		resp.EnvironmentID = &id
		resp.Registered = true
	}

	httputil.WriteSuccess(w, resp)
}

// listEnvironments returns every environment registered in the store
func (s *Server) listEnvironments(w http.ResponseWriter, r *http.Request) {
	envs, err := s.store.ListEnvironments(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list environments")
		httputil.WriteServiceUnavailable(w, "environment registry unavailable")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"environments": envs,
	})
}

// flushCache drops all cached values and environment ids
func (s *Server) flushCache(w http.ResponseWriter, r *http.Request) {
	s.resolver.ClearCache()
	observability.FromContext(r.Context()).Info("caches flushed")
	httputil.WriteSuccessMessage(w, "caches flushed", nil)
}
