package api

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

type checkGateRequest struct {
	User     model.User `json:"user"`
	GateName string     `json:"gateName"`
}

type checkGateResponse struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type getConfigRequest struct {
	User       model.User `json:"user"`
	ConfigName string     `json:"configName"`
}

type getLayerRequest struct {
	User       model.User `json:"user"`
	LayerName  string     `json:"layerName"`
	Parameters []string   `json:"parameters,omitempty"`
}

// getLayerResponse carries the layer plus the parameters read through it.
// Only listed parameters are exposed.
type getLayerResponse struct {
	Name       string         `json:"name"`
	Value      map[string]any `json:"value"`
	RuleID     string         `json:"rule_id"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type logEventRequest struct {
	User      model.User       `json:"user"`
	EventName string           `json:"eventName"`
	Value     model.EventValue `json:"value"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Time      *time.Time       `json:"time,omitempty"`
}

type clientInitializeRequest struct {
	User model.User `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// handleCheckGate handles POST /v1/check_gate
func (s *Server) handleCheckGate(w http.ResponseWriter, r *http.Request) {
	var req checkGateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	value, err := s.sdk.CheckGate(r.Context(), req.User, req.GateName)
	if err != nil {
		writeSDKError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkGateResponse{Name: req.GateName, Value: value})
}

// handleGetConfig handles POST /v1/get_config
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var req getConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := s.sdk.GetConfig(r.Context(), req.User, req.ConfigName)
	if err != nil {
		writeSDKError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleGetExperiment handles POST /v1/get_experiment
func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	var req getConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	exp, err := s.sdk.GetExperiment(r.Context(), req.User, req.ConfigName)
	if err != nil {
		writeSDKError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// handleGetLayer handles POST /v1/get_layer
func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	var req getLayerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	layer, err := s.sdk.GetLayer(r.Context(), req.User, req.LayerName)
	if err != nil {
		writeSDKError(w, r, err)
		return
	}

	resp := getLayerResponse{
		Name:   layer.Name(),
		Value:  layer.Value(),
		RuleID: layer.RuleID(),
	}
	if len(req.Parameters) > 0 {
		resp.Parameters = make(map[string]any, len(req.Parameters))
		for _, p := range req.Parameters {
			resp.Parameters[p] = layer.Get(p, nil)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogEvent handles POST /v1/log_event
func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ev := model.Event{
		EventName: req.EventName,
		User:      req.User,
		Value:     req.Value,
		Metadata:  req.Metadata,
	}
	if req.Time != nil {
		ev.Time = *req.Time
	}
	if err := s.sdk.LogEventObject(ev); err != nil {
		writeSDKError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

// handleClientInitialize handles POST /v1/client_initialize
func (s *Server) handleClientInitialize(w http.ResponseWriter, r *http.Request) {
	var req clientInitializeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.sdk.GetClientInitializeResponse(req.User)
	if err != nil {
		writeSDKError(w, r, err)
		return
	}
	if resp == nil {
		resp = map[string]any{"has_updates": false}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFlush handles POST /v1/flush
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.sdk.Flush(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("flush failed")
		InternalError(w, r, "flush failed")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
