package engine

import (
	"context"
	"errors"
	"log"

	"roister/agent/internal/store"
)

// ErrNotAIProspect is returned when a prospect turn is requested on a
// session that was started in human mode.
var ErrNotAIProspect = errors.New("engine: session is not in ai prospect mode")

// ProspectTurn generates the simulated prospect's next utterance and runs it
// through the normal turn pipeline. The LLM role-play is attempted first;
// on failure the scripted line for the current turn is used so simulations
// always make progress.
func (e *Engine) ProspectTurn(ctx context.Context, sessionID string) (TurnResult, error) {
	sess, err := e.Store.Get(sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if sess.ProspectMode != store.ModeAI {
		return TurnResult{}, ErrNotAIProspect
	}

	text := e.prospectText(ctx, sess)
	res, err := e.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		return TurnResult{}, err
	}
	res.ProspectText = text
	return res, nil
}

func (e *Engine) prospectText(ctx context.Context, sess *store.Session) string {
	if e.Prospect != nil && !e.ForceRuleBased {
		text, err := e.Prospect.ProspectTurn(ctx, sess.State)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			log.Printf("[engine] prospect fallback session=%s err=%v", sess.ID, err)
		}
	}
	idx := sess.State.TurnCount
	if idx >= len(scriptedProspect) {
		idx = len(scriptedProspect) - 1
	}
	return scriptedProspect[idx]
}
