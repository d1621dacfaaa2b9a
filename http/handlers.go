package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"obesityrisk/metrics"
	"obesityrisk/prediction"
	"obesityrisk/realtime"
	"obesityrisk/session"
	"obesityrisk/wizard"
)

const sessionCookie = "wizard_session"

// Readiness reports whether the model artifacts are in memory.
type Readiness interface {
	Loaded() bool
}

type Handlers struct {
	sessions  *session.Store
	hub       *realtime.Hub
	form      *wizard.Form
	readiness Readiness
	metrics   *metrics.Collector
	logger    *zap.Logger
}

func NewHandlers(sessions *session.Store, hub *realtime.Hub, form *wizard.Form, readiness Readiness, collector *metrics.Collector, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Handlers{sessions: sessions, hub: hub, form: form, readiness: readiness, metrics: collector, logger: logger}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/form", h.handleForm)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)

	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/state", h.withSession(h.handleState))
	mux.HandleFunc("POST /api/sessions/{id}/field", h.withSession(h.handleField))
	mux.HandleFunc("POST /api/sessions/{id}/navigate", h.withSession(h.handleNavigate))
	mux.HandleFunc("POST /api/sessions/{id}/submit", h.withSession(h.handleSubmit))
	mux.HandleFunc("GET /api/sessions/{id}/ws", h.withSession(h.handleStream))

	// Same operations for clients that keep the session in a cookie.
	mux.HandleFunc("GET /state", h.withCookieSession(h.handleState))
	mux.HandleFunc("POST /field", h.withCookieSession(h.handleField))
	mux.HandleFunc("POST /navigate", h.withCookieSession(h.handleNavigate))
	mux.HandleFunc("POST /submit", h.withCookieSession(h.handleSubmit))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, entry *session.Entry)

func (h *Handlers) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := h.sessions.Get(r.PathValue("id"))
		if err != nil {
			respondError(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		next(w, r, entry)
	}
}

func (h *Handlers) withCookieSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			if entry, err := h.sessions.Get(cookie.Value); err == nil {
				next(w, r, entry)
				return
			}
		}
		entry := h.createSession()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    entry.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next(w, r, entry)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := false
	if h.readiness != nil {
		loaded = h.readiness.Loaded()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"sessions":     h.sessions.Len(),
		"model_loaded": loaded,
		"time":         time.Now().UTC(),
		"system":       h.metrics.SystemStats(),
	})
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.SetGauge(metrics.SessionsLive, float64(h.sessions.Len()), nil)
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(h.metrics.ExportPrometheus()))
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"pages": h.form.Pages()})
}

func (h *Handlers) createSession() *session.Entry {
	entry := h.sessions.Create()
	h.metrics.IncrCounter(metrics.SessionsCreated, 1, nil)
	h.metrics.SetGauge(metrics.SessionsLive, float64(h.sessions.Len()), nil)
	return entry
}

func (h *Handlers) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	entry := h.createSession()
	respondJSON(w, http.StatusCreated, stateResponse{SessionID: entry.ID, State: entry.Snapshot()})
}

func (h *Handlers) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.sessions.Delete(id) {
		respondError(w, http.StatusNotFound, errorResponse{Error: session.ErrNotFound.Error()})
		return
	}
	if h.hub != nil {
		h.hub.Drop(id)
	}
	h.metrics.SetGauge(metrics.SessionsLive, float64(h.sessions.Len()), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleState(w http.ResponseWriter, r *http.Request, entry *session.Entry) {
	respondJSON(w, http.StatusOK, stateResponse{SessionID: entry.ID, State: entry.Snapshot()})
}

type fieldRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (h *Handlers) handleField(w http.ResponseWriter, r *http.Request, entry *session.Entry) {
	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errorResponse{Error: err.Error(), SessionID: entry.ID})
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, errorResponse{Error: "name is required", SessionID: entry.ID})
		return
	}

	// Publishing under the session lock keeps stream order equal to the
	// order the updates were applied in.
	var snapshot wizard.Snapshot
	err := entry.Do(func(wz *wizard.Wizard) error {
		err := wz.SetField(req.Name, req.Value)
		snapshot = wz.Snapshot()
		if err == nil {
			h.publish(entry.ID, snapshot)
		}
		return err
	})
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		h.metrics.IncrCounter(metrics.ValidationErrors, 1, map[string]string{"field": h.fieldLabel(verr.Field)})
		respondError(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      verr.Error(),
			Kind:       "validation",
			Field:      verr.Field,
			Suggestion: verr.Suggestion,
			SessionID:  entry.ID,
			State:      &snapshot,
		})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), SessionID: entry.ID})
		return
	}
	h.metrics.IncrCounter(metrics.FieldUpdates, 1, nil)
	respondJSON(w, http.StatusOK, stateResponse{SessionID: entry.ID, State: snapshot})
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

func (h *Handlers) handleNavigate(w http.ResponseWriter, r *http.Request, entry *session.Entry) {
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errorResponse{Error: err.Error(), SessionID: entry.ID})
		return
	}

	var move func(wz *wizard.Wizard) error
	var direction string
	switch strings.ToLower(req.Direction) {
	case "next", "forward", "advance":
		direction = "next"
		move = func(wz *wizard.Wizard) error { return wz.Advance() }
	case "back", "previous", "retreat":
		direction = "back"
		move = func(wz *wizard.Wizard) error {
			wz.Retreat()
			return nil
		}
	default:
		respondError(w, http.StatusBadRequest, errorResponse{
			Error:     `direction must be "next" or "back"`,
			SessionID: entry.ID,
		})
		return
	}

	var snapshot wizard.Snapshot
	err := entry.Do(func(wz *wizard.Wizard) error {
		err := move(wz)
		snapshot = wz.Snapshot()
		if err == nil {
			h.publish(entry.ID, snapshot)
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "navigation", SessionID: entry.ID, State: &snapshot})
		return
	}
	h.metrics.IncrCounter(metrics.Navigations, 1, map[string]string{"direction": direction})
	respondJSON(w, http.StatusOK, stateResponse{SessionID: entry.ID, State: snapshot})
}

func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request, entry *session.Entry) {
	var snapshot wizard.Snapshot
	var result wizard.Prediction
	start := time.Now()
	err := entry.Do(func(wz *wizard.Wizard) error {
		var err error
		result, err = wz.Submit(r.Context())
		snapshot = wz.Snapshot()
		h.publish(entry.ID, snapshot)
		return err
	})

	if err != nil {
		status, kind := submitStatus(err)
		h.metrics.IncrCounter(metrics.PredictionErrors, 1, map[string]string{"kind": kind})
		if status >= http.StatusInternalServerError {
			h.logger.Error("submit failed", zap.String("session_id", entry.ID), zap.Error(err))
		}
		respondError(w, status, errorResponse{Error: err.Error(), Kind: kind, SessionID: entry.ID, State: &snapshot})
		return
	}
	h.metrics.IncrCounter(metrics.Predictions, 1, map[string]string{"label": result.Label})
	h.metrics.IncrCounter(metrics.PredictionSeconds, time.Since(start).Seconds(), nil)
	h.logger.Info("prediction", zap.String("session_id", entry.ID), zap.String("label", result.Label))
	respondJSON(w, http.StatusOK, stateResponse{SessionID: entry.ID, State: snapshot, Prediction: &result})
}

func submitStatus(err error) (int, string) {
	if errors.Is(err, wizard.ErrNotTerminalPage) {
		return http.StatusConflict, "not_terminal_page"
	}
	switch kind := prediction.KindOf(err); kind {
	case prediction.InvalidInput:
		return http.StatusUnprocessableEntity, kind.String()
	case prediction.ArtifactUnavailable:
		return http.StatusServiceUnavailable, kind.String()
	case prediction.InferenceFailed:
		return http.StatusInternalServerError, kind.String()
	default:
		return http.StatusInternalServerError, prediction.InferenceFailed.String()
	}
}

func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request, entry *session.Entry) {
	if err := h.hub.Serve(w, r, entry.ID, entry.Snapshot()); err != nil {
		h.logger.Warn("state stream", zap.String("session_id", entry.ID), zap.Error(err))
	}
}

// fieldLabel keeps the metric label set bounded to the form's fields.
func (h *Handlers) fieldLabel(name string) string {
	if field, ok := h.form.Lookup(name); ok {
		return field.Name
	}
	return "unknown"
}

func (h *Handlers) publish(sessionID string, snapshot wizard.Snapshot) {
	if h.hub == nil {
		return
	}
	if err := h.hub.Publish(sessionID, snapshot); err != nil {
		h.logger.Warn("publish state", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
