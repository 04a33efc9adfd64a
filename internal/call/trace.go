package call

// Provenance tags recorded per trace turn.
const (
	SourceLLM       = "llm"
	SourceRuleBased = "rule_based"
	SourceTemplate  = "template"
)

// TraceTurn is one turn's worth of decision audit data. Records are
// immutable once appended.
type TraceTurn struct {
	TurnIndex   int      `json:"turn_index"`
	UserText    string   `json:"user_text"`
	AgentText   string   `json:"agent_text"`
	Extracted   Signals  `json:"extracted"`
	Action      Action   `json:"action"`
	ScoreBefore float64  `json:"score_before"`
	ScoreAfter  float64  `json:"score_after"`
	Reasons     []string `json:"reasons"`
	StageBefore Stage    `json:"stage_before"`
	StageAfter  Stage    `json:"stage_after"`

	// Whether extraction/wording came from the external provider or the
	// deterministic fallback.
	ExtractedSource string `json:"extracted_source"`
	WordingSource   string `json:"wording_source"`
}

// Trace accumulates TraceTurns across the whole call so the outcome can
// answer "why did the agent do X on turn N". Append-only; EndedReason is
// set once when the call terminates and then frozen.
type Trace struct {
	SessionID   string      `json:"session_id"`
	Turns       []TraceTurn `json:"turns"`
	EndedReason string      `json:"ended_reason,omitempty"`
}

// NewTrace returns an empty trace for a session.
func NewTrace(sessionID string) *Trace {
	return &Trace{SessionID: sessionID}
}

// AddTurn appends a fully-formed trace turn. Reasons mirror the action's
// reason codes so the trace is self-contained.
func (t *Trace) AddTurn(turn TraceTurn) {
	turn.Reasons = append([]string(nil), turn.Action.ReasonCodes...)
	t.Turns = append(t.Turns, turn)
}
