package api

import (
	"encoding/json"
	"net/http"
	"time"

	"roister/agent/internal/auth"
	"roister/agent/internal/config"
	"roister/agent/internal/engine"
	"roister/agent/internal/health"
	"roister/agent/internal/store"
)

type Handlers struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
}

func NewHandlers(cfg config.Config, st *store.Store, e *engine.Engine) *Handlers {
	return &Handlers{cfg: cfg, store: st, engine: e}
}

// HandleHealthz runs the dependency checks and reports the combined
// status. A failing check answers 503 so orchestrators see the outage.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	status := health.CheckAll(r.Context(), h.cfg)
	if !status.OK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(status)
		return
	}
	writeJSON(w, status)
}

type runRequest struct {
	ProspectMode string `json:"prospect_mode"`
}

// HandleRun starts a new simulation session and returns the opener.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	mode := store.ModeHuman
	if r.Body != nil {
		var body runRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if body.ProspectMode == store.ModeAI {
				mode = store.ModeAI
			}
		}
	}

	sess, opener, err := h.engine.StartSession("", mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"session_id":    sess.ID,
		"status":        store.StatusRunning,
		"agent_text":    opener,
		"prospect_mode": mode,
		"connect_info": map[string]any{
			"ws_path":    "/ws/call?session_id=" + sess.ID,
			"input_path": "/api/v1/input/" + sess.ID,
		},
	})
}

type inputRequest struct {
	UserText string `json:"user_text"`
}

// HandleInput processes one user turn.
func (h *Handlers) HandleInput(w http.ResponseWriter, r *http.Request, id string) {
	var body inputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.engine.ProcessTurn(r.Context(), id, body.UserText)
	if err == store.ErrSessionNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// HandleProspect generates an AI prospect turn and processes it.
func (h *Handlers) HandleProspect(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.engine.ProspectTurn(r.Context(), id)
	if err == store.ErrSessionNotFound {
		http.NotFound(w, r)
		return
	}
	if err == engine.ErrNotAIProspect {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// HandleOutcome returns the final outcome, or status running while the call
// is still in progress.
func (h *Handlers) HandleOutcome(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Get(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"status":  sess.Status,
		"outcome": sess.Outcome,
	})
}

// HandleMintWSToken issues a short-lived token for the call WebSocket.
// Only available when a token secret is configured.
func (h *Handlers) HandleMintWSToken(w http.ResponseWriter, r *http.Request, id string) {
	if h.cfg.WS.TokenSecret == "" {
		http.Error(w, "ws token auth not configured", http.StatusBadRequest)
		return
	}
	if _, err := h.store.Get(id); err != nil {
		http.NotFound(w, r)
		return
	}

	exp := time.Now().Add(time.Duration(h.cfg.WS.TokenExpMin) * time.Minute).Unix()
	token := auth.GenerateSessionToken(h.cfg.WS.TokenSecret, id, exp)

	writeJSON(w, map[string]any{
		"session_id": id,
		"token":      token,
		"exp":        exp,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
