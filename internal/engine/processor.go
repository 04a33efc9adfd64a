// Package engine drives one conversational turn end to end: extract signals
// from the user's utterance, merge them into the prospect state, score,
// decide the next action, render the agent's reply, and record the trace.
// All turn processing for a session is serialized; the engine itself is
// safe for concurrent use across sessions.
package engine

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"roister/agent/internal/call"
	"roister/agent/internal/provider"
	"roister/agent/internal/store"
)

// Engine holds everything needed to process turns. Provider fields may be
// nil, in which case the deterministic extractor and templates are used.
type Engine struct {
	Store    *store.Store
	Extract  provider.Extractor
	Wording  provider.Wording
	Prospect provider.Prospect

	MinConfidence  float64
	ForceRuleBased bool

	// OnSilence, when set, is invoked after the watchdog ends a session so
	// a live transport can push the final result to the caller.
	OnSilence func(sessionID string, res TurnResult)
}

// TurnResult is what a transport hands back to the caller after one turn.
type TurnResult struct {
	SessionID        string        `json:"session_id"`
	Status           string        `json:"status"`
	AgentText        string        `json:"agent_text"`
	OpportunityScore float64       `json:"opportunity_score"`
	Ended            bool          `json:"ended"`
	Outcome          *call.Outcome `json:"outcome,omitempty"`

	// ProspectText is set only in AI-prospect mode: the simulated
	// utterance that was fed into the turn.
	ProspectText string `json:"prospect_text,omitempty"`
}

// StartSession creates a new session and returns it with the fixed opener.
// An empty id gets a generated UUID.
func (e *Engine) StartSession(id, mode string) (*store.Session, string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	state := call.NewProspectState(id)
	trace := call.NewTrace(id)
	sess, err := e.Store.Create(id, state, trace, mode)
	if err != nil {
		return nil, "", err
	}
	state.LastAgentText = Opener
	metricSessionsStarted.Inc()
	log.Printf("[engine] session started id=%s mode=%s", id, mode)
	return sess, Opener, nil
}

// ProcessTurn runs the full pipeline for one user utterance. Completed
// sessions return their stored outcome unchanged; processing a turn on one
// is not an error.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, userText string) (TurnResult, error) {
	sess, err := e.Store.Get(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Status == store.StatusCompleted {
		return completedResult(sess), nil
	}

	started := time.Now()
	state := sess.State

	state.TurnCount++
	state.LastUserText = userText

	sig, extractedSource := e.extractSignals(ctx, userText, state)

	scoreBefore := call.Score(state)
	priorObjections := make(map[string]bool, len(state.Objections))
	for _, o := range state.Objections {
		priorObjections[o] = true
	}

	state.MergeSignals(sig, e.MinConfidence, extractedSource)
	state.InterestScore = call.Score(state)

	action := call.Decide(state, sig, priorObjections)
	stageBefore := state.Stage
	state.Stage = call.NextStage(state.Stage, action)

	if action.Type == call.ActionAskSlot {
		state.LastAskedSlot = action.Slot
	} else {
		state.LastAskedSlot = ""
	}

	agentText, wordingSource := e.renderWording(ctx, action, state, sig)
	state.LastAgentText = agentText

	sess.Trace.AddTurn(call.TraceTurn{
		TurnIndex:       state.TurnCount,
		UserText:        userText,
		AgentText:       agentText,
		Extracted:       sig,
		Action:          action,
		ScoreBefore:     scoreBefore,
		ScoreAfter:      state.InterestScore,
		StageBefore:     stageBefore,
		StageAfter:      state.Stage,
		ExtractedSource: extractedSource,
		WordingSource:   wordingSource,
	})
	e.Store.Touch(sessionID)

	metricTurns.Inc()
	metricActions.WithLabelValues(string(action.Type)).Inc()
	metricTurnDuration.Observe(float64(time.Since(started).Milliseconds()))

	if action.Terminal() {
		e.finalize(sess, action.ReasonCodes)
		return completedResult(sess), nil
	}

	return TurnResult{
		SessionID:        sessionID,
		Status:           store.StatusRunning,
		AgentText:        agentText,
		OpportunityScore: round1(state.InterestScore),
	}, nil
}

// FinalizeSilence ends a session that went quiet, through the same
// idempotent path as a normal terminal turn. The agent's sign-off counts
// as a turn and is recorded in the trace with no user text.
func (e *Engine) FinalizeSilence(sessionID string) {
	sess, err := e.Store.Get(sessionID)
	if err != nil {
		return
	}

	sess.Lock()
	if sess.Status == store.StatusCompleted {
		sess.Unlock()
		return
	}

	state := sess.State
	state.TurnCount++
	action := call.Action{
		Type:        call.ActionEnd,
		MessageGoal: "close the call after prolonged silence",
		ReasonCodes: []string{"SILENCE_TIMEOUT"},
	}
	stageBefore := state.Stage
	state.Stage = call.NextStage(state.Stage, action)
	state.LastAskedSlot = ""

	agentText := templateText(action, call.Signals{})
	state.LastAgentText = agentText

	sess.Trace.AddTurn(call.TraceTurn{
		TurnIndex:       state.TurnCount,
		AgentText:       agentText,
		Action:          action,
		ScoreBefore:     state.InterestScore,
		ScoreAfter:      state.InterestScore,
		StageBefore:     stageBefore,
		StageAfter:      state.Stage,
		ExtractedSource: call.SourceRuleBased,
		WordingSource:   call.SourceTemplate,
	})

	metricSilenceTimeouts.Inc()
	e.finalize(sess, action.ReasonCodes)
	res := completedResult(sess)
	sess.Unlock()

	if e.OnSilence != nil {
		e.OnSilence(sessionID, res)
	}
}

// extractSignals runs the provider extractor when configured, falling back
// to the rule-based extractor on error or low confidence.
func (e *Engine) extractSignals(ctx context.Context, userText string, state *call.ProspectState) (call.Signals, string) {
	if e.Extract == nil || e.ForceRuleBased {
		return call.ExtractRuleBased(userText), call.SourceRuleBased
	}
	sig, err := e.Extract.Extract(ctx, userText, state)
	if err != nil || sig.Confidence < e.MinConfidence {
		if err != nil {
			log.Printf("[engine] extract fallback session=%s err=%v", state.SessionID, err)
		}
		metricExtractFallbacks.Inc()
		return call.ExtractRuleBased(userText), call.SourceRuleBased
	}
	return sig, call.SourceLLM
}

// renderWording asks the provider for the agent's line, falling back to the
// deterministic templates.
func (e *Engine) renderWording(ctx context.Context, action call.Action, state *call.ProspectState, sig call.Signals) (string, string) {
	if e.Wording == nil || e.ForceRuleBased {
		return templateText(action, sig), call.SourceTemplate
	}
	text, err := e.Wording.Generate(ctx, action, state, sig)
	if err != nil || text == "" {
		if err != nil {
			log.Printf("[engine] wording fallback session=%s err=%v", state.SessionID, err)
		}
		metricWordingFallbacks.Inc()
		return templateText(action, sig), call.SourceTemplate
	}
	return text, call.SourceLLM
}

// finalize builds the outcome exactly once. Caller holds the session lock.
func (e *Engine) finalize(sess *store.Session, reasons []string) {
	reason := "UNKNOWN"
	if len(reasons) > 0 {
		reason = reasons[0]
	}
	if sess.Trace.EndedReason == "" {
		sess.Trace.EndedReason = reason
	}
	outcome := call.BuildOutcome(sess.State, sess.Trace)
	e.Store.SetOutcome(sess.ID, outcome)
	metricSessionsEnded.WithLabelValues(reason).Inc()
	metricFinalScore.Observe(outcome.OpportunityScore)
	log.Printf("[engine] session ended id=%s reason=%s score=%.1f label=%s",
		sess.ID, reason, outcome.OpportunityScore, outcome.OpportunityLabel)
}

func completedResult(sess *store.Session) TurnResult {
	res := TurnResult{
		SessionID: sess.ID,
		Status:    store.StatusCompleted,
		AgentText: sess.State.LastAgentText,
		Ended:     true,
		Outcome:   sess.Outcome,
	}
	if sess.Outcome != nil {
		res.OpportunityScore = sess.Outcome.OpportunityScore
	}
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
