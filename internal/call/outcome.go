package call

import (
	"fmt"
	"math"
	"strings"
)

// Outcome is the final structured result of a call.
type Outcome struct {
	LearnedFields         LearnedFields `json:"learned_fields"`
	OpportunityScore      float64       `json:"opportunity_score"`
	OpportunityLabel      string        `json:"opportunity_label"`
	RecommendedNextAction string        `json:"recommended_next_action"`
	Summary               string        `json:"summary"`
	ScoreBreakdown        []ScoreItem   `json:"score_breakdown"`
	ScoreExplanation      string        `json:"score_explanation"`
	DecisionTrace         []TraceTurn   `json:"decision_trace"`
}

// BuildOutcome assembles the final outcome from the terminal state and the
// full trace. The score is recomputed from the terminal state so the
// outcome is always consistent with it. The function is pure; idempotent
// finalization (return the stored outcome on a completed session) is the
// session store's responsibility.
func BuildOutcome(state *ProspectState, trace *Trace) Outcome {
	score, breakdown, explanation := ScoreWithBreakdown(state)
	label := LabelFromScore(score)
	next := recommendedNextAction(state, label)

	return Outcome{
		LearnedFields:         state.Learned,
		OpportunityScore:      math.Round(score*10) / 10,
		OpportunityLabel:      label,
		RecommendedNextAction: next,
		Summary:               buildSummary(state, score, label, next, trace),
		ScoreBreakdown:        breakdown,
		ScoreExplanation:      explanation,
		DecisionTrace:         trace.Turns,
	}
}

// recommendedNextAction picks a concrete follow-up from the score label,
// the authority flag, and whether the lead explicitly said not_interested.
func recommendedNextAction(state *ProspectState, label string) string {
	if len(state.FilledSlots()) == 0 {
		return "Re-attempt call with revised opener"
	}

	switch label {
	case "Strong":
		if a := state.Learned.Authority; a != nil && *a {
			return "Fast-track to demo with decision-maker"
		}
		return "Schedule discovery call with AE to reach decision-maker"
	case "Medium":
		return "Schedule discovery call with AE"
	}

	if contains(state.Objections, "not_interested") {
		return "Move to nurture track; re-engage in 60 days"
	}
	return "Nurture via email drip; re-engage in 30 days"
}

func buildSummary(state *ProspectState, score float64, label, next string, trace *Trace) string {
	ended := trace.EndedReason
	if ended == "" {
		ended = "agent decision"
	}

	parts := []string{
		fmt.Sprintf("Cold-call simulation completed in %d turns (ended: %s).", len(trace.Turns), ended),
		fmt.Sprintf("Gathered %d/%d qualification fields.", len(state.FilledSlots()), len(SlotPriority)),
	}
	if len(state.Objections) > 0 {
		parts = append(parts, "Objections encountered: "+strings.Join(state.Objections, ", ")+".")
	}
	parts = append(parts,
		fmt.Sprintf("Opportunity rated '%s' (%.1f/10).", label, score),
		"Recommendation: "+next+".",
	)
	return strings.Join(parts, " ")
}
