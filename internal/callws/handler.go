// Package callws is the real-time transport for a live call: a WebSocket
// per session carrying text turns in and agent replies out. Token auth is
// enforced only when a secret is configured, so local development works
// without minting tokens.
package callws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"roister/agent/internal/auth"
	"roister/agent/internal/config"
	"roister/agent/internal/engine"
	"roister/agent/internal/store"

	ws "nhooyr.io/websocket"
)

// Inbound is a client frame: one user turn.
type Inbound struct {
	Type     string `json:"type"`
	UserText string `json:"user_text"`
}

// Outbound is a server frame: a processed turn result, the final result of
// a call the watchdog ended, or an error note.
type Outbound struct {
	Type   string             `json:"type"`
	Error  string             `json:"error,omitempty"`
	Result *engine.TurnResult `json:"result,omitempty"`
}

type Server struct {
	Cfg    config.Config
	Store  *store.Store
	Engine *engine.Engine
	Reg    *Registry
}

func NewServer(cfg config.Config, st *store.Store, e *engine.Engine, reg *Registry) *Server {
	return &Server{Cfg: cfg, Store: st, Engine: e, Reg: reg}
}

// HandleCallWS serves /ws/call?session_id=<id>[&token=<tok>].
// Connect, send {"type":"turn","user_text":...} frames, receive turn
// results. The server closes the connection after a terminal turn.
func (s *Server) HandleCallWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess, err := s.Store.Get(sessionID)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if sess.Status == store.StatusCompleted {
		http.Error(w, "session already completed", http.StatusConflict)
		return
	}

	if s.Cfg.WS.TokenSecret != "" {
		token := q.Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, _, err := auth.ValidateSessionToken(s.Cfg.WS.TokenSecret, token, sessionID, time.Now(), s.Cfg.WS.TokenSkewSecs); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Printf("[callws] accept: %v", err)
		return
	}
	s.Reg.Replace(sessionID, c)
	log.Printf("[callws] connected session=%s", sessionID)

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText {
			continue
		}
		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.writeJSON(ctx, c, Outbound{Type: "error", Error: "invalid frame"})
			continue
		}
		if msg.Type != "turn" {
			s.writeJSON(ctx, c, Outbound{Type: "error", Error: "unknown frame type " + msg.Type})
			continue
		}

		res, err := s.Engine.ProcessTurn(ctx, sessionID, msg.UserText)
		if err != nil {
			s.writeJSON(ctx, c, Outbound{Type: "error", Error: err.Error()})
			continue
		}
		s.writeJSON(ctx, c, Outbound{Type: "turn_result", Result: &res})

		if res.Ended {
			_ = c.Close(ws.StatusNormalClosure, "call ended")
			break
		}
	}
	s.Reg.Remove(sessionID)
	log.Printf("[callws] disconnected session=%s", sessionID)
}

// NotifySilence pushes the watchdog's final result to the session's live
// connection, if one exists, then closes it. Wired as the engine's
// OnSilence hook.
func (s *Server) NotifySilence(sessionID string, res engine.TurnResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Reg.SendJSON(ctx, sessionID, Outbound{Type: "call_ended", Result: &res}); err != nil {
		log.Printf("[callws] silence notify session=%s: %v", sessionID, err)
	}
	if c := s.Reg.Get(sessionID); c != nil {
		_ = c.Close(ws.StatusNormalClosure, "call ended")
		s.Reg.Remove(sessionID)
	}
}

func (s *Server) writeJSON(ctx context.Context, c *ws.Conn, v Outbound) {
	b, _ := json.Marshal(v)
	if err := c.Write(ctx, ws.MessageText, b); err != nil {
		log.Printf("[callws] write: %v", err)
	}
}
