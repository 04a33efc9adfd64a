// Package api exposes the HTTP surface: session lifecycle, turn input,
// AI-prospect turns, outcomes, and WS token minting. Routing is a plain
// ServeMux with manual path parsing, versioned under /api/v1.
package api

import (
	"net/http"
	"strings"
)

func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.HandleHealthz)

	mux.HandleFunc("/api/v1/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleRun(w, r)
	})

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		// /api/v1/input/{id} | /prospect/{id} | /outcome/{id}
		// /api/v1/sessions/{id}/ws-token
		path := strings.TrimSuffix(r.URL.Path, "/")
		rest := strings.TrimPrefix(path, "/api/v1/")
		parts := strings.Split(rest, "/")
		if len(parts) < 2 || parts[1] == "" {
			http.NotFound(w, r)
			return
		}

		switch parts[0] {
		case "input":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.HandleInput(w, r, parts[1])
		case "prospect":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.HandleProspect(w, r, parts[1])
		case "outcome":
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.HandleOutcome(w, r, parts[1])
		case "sessions":
			if len(parts) != 3 || parts[2] != "ws-token" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.HandleMintWSToken(w, r, parts[1])
		default:
			http.NotFound(w, r)
		}
	})

	return mux
}
