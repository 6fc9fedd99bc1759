// Package api exposes the webhook subsystem over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cambista/fxhooks/internal/dispatch"
	"github.com/cambista/fxhooks/internal/endpoint"
	"github.com/cambista/fxhooks/internal/logging"
	"github.com/cambista/fxhooks/internal/service"
)

// Handlers provides HTTP handlers for endpoint management, event
// publication and delivery introspection.
type Handlers struct {
	svc    *service.Service
	logger *logging.Logger
}

func NewHandlers(svc *service.Service, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.New("fxhooks-api")
	}
	return &Handlers{svc: svc, logger: logger}
}

// RegisterRoutes mounts the v1 API onto router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/endpoints", h.createEndpoint).Methods("POST")
	v1.HandleFunc("/endpoints", h.listEndpoints).Methods("GET")
	v1.HandleFunc("/endpoints/{id}", h.getEndpoint).Methods("GET")
	v1.HandleFunc("/endpoints/{id}", h.updateEndpoint).Methods("PATCH")
	v1.HandleFunc("/endpoints/{id}", h.deleteEndpoint).Methods("DELETE")
	v1.HandleFunc("/events", h.publishEvent).Methods("POST")
	v1.HandleFunc("/event-types", h.listEventTypes).Methods("GET")
	v1.HandleFunc("/deliveries", h.listDeliveries).Methods("GET")
	v1.HandleFunc("/stats", h.getStats).Methods("GET")
}

type createEndpointRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

type updateEndpointRequest struct {
	URL    *string  `json:"url,omitempty"`
	Events []string `json:"events,omitempty"`
	Active *bool    `json:"active,omitempty"`
	Secret *string  `json:"secret,omitempty"`
}

type publishEventRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// endpointView hides the secret except at creation time, where the
// caller needs it once to configure its receiver.
type endpointView struct {
	ID                  string   `json:"id"`
	URL                 string   `json:"url"`
	Events              []string `json:"events"`
	Secret              string   `json:"secret,omitempty"`
	Active              bool     `json:"active"`
	ConsecutiveFailures int      `json:"consecutive_failures"`
	CreatedAt           string   `json:"created_at"`
	LastUsedAt          string   `json:"last_used_at,omitempty"`
}

func viewOf(ep endpoint.Endpoint, includeSecret bool) endpointView {
	v := endpointView{
		ID:                  ep.ID,
		URL:                 ep.URL,
		Events:              ep.Events,
		Active:              ep.Active,
		ConsecutiveFailures: ep.ConsecutiveFailures,
		CreatedAt:           ep.CreatedAt.Format(time.RFC3339),
	}
	if includeSecret {
		v.Secret = ep.Secret
	}
	if ep.LastUsedAt != nil {
		v.LastUsedAt = ep.LastUsedAt.Format(time.RFC3339)
	}
	return v
}

func (h *Handlers) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req createEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ep, err := h.svc.AddEndpoint(r.Context(), req.URL, req.Events, req.Secret)
	if err != nil {
		h.writeEndpointError(w, err)
		return
	}

	h.logger.WithContext(r.Context()).WithEndpoint(ep.ID).WithField("url", ep.URL).Info("endpoint registered")
	writeJSON(w, http.StatusCreated, viewOf(ep, true))
}

func (h *Handlers) listEndpoints(w http.ResponseWriter, r *http.Request) {
	eps, err := h.svc.ListEndpoints(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]endpointView, 0, len(eps))
	for _, ep := range eps {
		views = append(views, viewOf(ep, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": views, "count": len(views)})
}

func (h *Handlers) getEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.svc.GetEndpoint(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ep, false))
}

func (h *Handlers) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req updateEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	patch := endpoint.Patch{URL: req.URL, Events: req.Events, Active: req.Active, Secret: req.Secret}
	ep, err := h.svc.UpdateEndpoint(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ep, false))
}

func (h *Handlers) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.RemoveEndpoint(r.Context(), id); err != nil {
		h.writeEndpointError(w, err)
		return
	}
	h.logger.WithContext(r.Context()).WithEndpoint(id).Info("endpoint removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) publishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var data any
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			http.Error(w, "data must be valid JSON", http.StatusBadRequest)
			return
		}
	}

	n, err := h.svc.Publish(r.Context(), req.Event, data)
	if err != nil {
		if errors.Is(err, dispatch.ErrEmptyEventType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Fire-and-forget: accepted means scheduled, not delivered.
	writeJSON(w, http.StatusAccepted, map[string]any{"event": req.Event, "deliveries_scheduled": n})
}

func (h *Handlers) listEventTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"event_types": dispatch.KnownEventTypes()})
}

func (h *Handlers) listDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries := h.svc.GetEventLog(limit)
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": entries, "count": len(entries)})
}

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeEndpointError maps registry errors onto HTTP statuses.
func (h *Handlers) writeEndpointError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, endpoint.ErrNotFound):
		http.Error(w, "endpoint not found", http.StatusNotFound)
	case errors.Is(err, endpoint.ErrInvalidURL), errors.Is(err, endpoint.ErrEmptyEventSet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, endpoint.ErrDuplicateURL):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
