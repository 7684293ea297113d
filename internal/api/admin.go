package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/validation"
)

type overrideRequest struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	UserID string `json:"userID,omitempty"`
}

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

// handleOverrideGate handles POST /v1/admin/overrides/gate
func (s *Server) handleOverrideGate(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "name is required")
		return
	}
	if _, ok := req.Value.(bool); !ok {
		BadRequestError(w, r, ErrCodeInvalidOverride, "gate override value must be a boolean")
		return
	}

	s.sdk.OverrideGate(req.Name, req.Value, req.UserID)
	s.logger.Info().Str("gate", req.Name).Str("user_id", req.UserID).Msg("gate override set")
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleOverrideConfig handles POST /v1/admin/overrides/config
func (s *Server) handleOverrideConfig(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "name is required")
		return
	}
	if _, ok := req.Value.(map[string]any); !ok {
		BadRequestError(w, r, ErrCodeInvalidOverride, "config override value must be a JSON object")
		return
	}

	s.sdk.OverrideConfig(req.Name, req.Value, req.UserID)
	s.logger.Info().Str("config", req.Name).Str("user_id", req.UserID).Msg("config override set")
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleRuleset handles GET /v1/admin/ruleset. Supports If-None-Match.
func (s *Server) handleRuleset(w http.ResponseWriter, r *http.Request) {
	rs := s.reloader.Ruleset()
	if rs == nil {
		NotReadyError(w, r, "ruleset not loaded")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == rs.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", rs.ETag)
	writeJSON(w, http.StatusOK, rs)
}

// handleListSpecs handles GET /v1/admin/specs?env=
func (s *Server) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := s.store.GetAllSpecs(r.Context(), s.envFrom(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("list specs failed")
		InternalError(w, r, "failed to list specs")
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

// handleGetSpec handles GET /v1/admin/specs/{name}?env=
func (s *Server) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	spec, err := s.store.GetSpec(r.Context(), name, s.envFrom(r))
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "spec not found: "+name)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("spec", name).Msg("get spec failed")
		InternalError(w, r, "failed to get spec")
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

// handleUpsertSpec handles POST /v1/admin/specs
func (s *Server) handleUpsertSpec(w http.ResponseWriter, r *http.Request) {
	var req store.UpsertParams
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if strings.TrimSpace(req.Env) == "" {
		req.Env = s.env
	}

	if result := validation.ValidateSpec(req); !result.Valid {
		ValidationError(w, r, "Validation failed", result.Errors)
		return
	}

	if err := s.store.UpsertSpec(r.Context(), req); err != nil {
		s.logger.Error().Err(err).Str("spec", req.Name).Msg("upsert spec failed")
		InternalError(w, r, "failed to save spec")
		return
	}
	s.afterMutation(w, r, req.Env)
}

// handleDeleteSpec handles DELETE /v1/admin/specs/{name}?env=
func (s *Server) handleDeleteSpec(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	env := s.envFrom(r)
	if err := s.store.DeleteSpec(r.Context(), name, env); err != nil {
		s.logger.Error().Err(err).Str("spec", name).Msg("delete spec failed")
		InternalError(w, r, "failed to delete spec")
		return
	}
	s.afterMutation(w, r, env)
}

// afterMutation reloads the ruleset when the served environment changed and
// answers with the current ETag.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, env string) {
	if env == s.env {
		if err := s.reloader.Reload(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("ruleset reload failed")
			InternalError(w, r, "ruleset reload failed")
			return
		}
	}
	var etag string
	if rs := s.reloader.Ruleset(); rs != nil {
		etag = rs.ETag
	}
	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: etag})
}

func (s *Server) envFrom(r *http.Request) string {
	if env := strings.TrimSpace(r.URL.Query().Get("env")); env != "" {
		return env
	}
	return s.env
}
