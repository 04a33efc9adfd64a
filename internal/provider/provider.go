// Package provider defines the narrow interfaces the turn engine uses for
// LLM-backed extraction and wording, plus the OpenAI-compatible HTTP client
// implementing them. Every method returns an error on any failure; the
// engine treats any error as "use the deterministic fallback" and never
// surfaces it to the caller.
package provider

import (
	"context"
	"errors"

	"roister/agent/internal/call"
)

var (
	ErrNotConfigured = errors.New("provider: api key not configured")
	ErrEmptyContent  = errors.New("provider: empty completion content")
)

// Extractor turns an utterance plus call context into structured signals.
type Extractor interface {
	Extract(ctx context.Context, userText string, state *call.ProspectState) (call.Signals, error)
}

// Wording produces the agent's next utterance for a chosen action.
type Wording interface {
	Generate(ctx context.Context, action call.Action, state *call.ProspectState, sig call.Signals) (string, error)
}

// Prospect generates a simulated prospect's next utterance (AI-prospect mode).
type Prospect interface {
	ProspectTurn(ctx context.Context, state *call.ProspectState) (string, error)
}
