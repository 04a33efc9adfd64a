package call

import "strings"

// ActionType is the kind of move the agent makes next.
type ActionType string

const (
	ActionAskSlot         ActionType = "ASK_SLOT"
	ActionHandleObjection ActionType = "HANDLE_OBJECTION"
	ActionClose           ActionType = "CLOSE"
	ActionEnd             ActionType = "END"
)

// Action is the decision engine's output: a concrete instruction for the
// agent. Slot is set only for ASK_SLOT. ReasonCodes explain the decision in
// order; the first entry is always the primary trigger.
type Action struct {
	Type        ActionType `json:"type"`
	Slot        Slot       `json:"slot,omitempty"`
	MessageGoal string     `json:"message_goal"`
	ReasonCodes []string   `json:"reason_codes"`
}

// Terminal reports whether this action ends the call.
func (a Action) Terminal() bool { return a.Type == ActionEnd || a.Type == ActionClose }

// TurnLimit is the hard ceiling on processed turns per call. Reaching it
// forces END, which is the system's liveness guarantee.
const TurnLimit = 10

// ObjectionHandleCap is the maximum number of distinct objections that get
// a dedicated HANDLE_OBJECTION turn per call.
const ObjectionHandleCap = 2

// Decide picks the agent's next action from the current state and the
// latest signals. It is a strict priority cascade, first match wins:
//
//	1. user ended                          -> END
//	2. turn limit reached                  -> END
//	3. all slots filled, score < 4         -> END (weak-lead bail-out)
//	4. objection: busy always ends; a new category under the handle cap
//	   gets HANDLE_OBJECTION; otherwise fall through with OBJECTION_SKIPPED
//	5. all slots filled, score >= 6        -> CLOSE
//	6. missing slots                       -> ASK_SLOT (best next slot)
//	7. fallback (unreachable)              -> END
//
// priorObjections is the objection set BEFORE this turn's merge, so the
// engine can tell a new objection from a repeat of one already handled.
func Decide(state *ProspectState, sig Signals, priorObjections map[string]bool) Action {
	var reasons []string
	if priorObjections == nil {
		priorObjections = map[string]bool{}
	}

	if sig.Intent == IntentEnd {
		return Action{
			Type:        ActionEnd,
			MessageGoal: "Wrap up politely — prospect signaled end of call",
			ReasonCodes: []string{"USER_ENDED"},
		}
	}

	if state.TurnCount >= TurnLimit {
		return Action{
			Type:        ActionEnd,
			MessageGoal: "Wrap up — reached maximum turns for this call",
			ReasonCodes: []string{"TURN_LIMIT_REACHED"},
		}
	}

	missing := state.MissingSlots()
	if len(missing) == 0 && state.InterestScore < 4 {
		return Action{
			Type:        ActionEnd,
			MessageGoal: "Thank prospect and end — lead is too weak to pursue",
			ReasonCodes: []string{"ALL_SLOTS_FILLED", "SCORE_TOO_LOW"},
		}
	}

	if sig.Intent == IntentObjection && sig.ObjectionType != "" {
		// Busy/callback requests are always respected, regardless of how
		// many objections have been handled.
		if sig.ObjectionType == "busy" {
			return Action{
				Type:        ActionEnd,
				MessageGoal: "Agree to call back at the time they requested and say a friendly goodbye",
				ReasonCodes: []string{"CALLBACK_REQUESTED"},
			}
		}
		isNew := !priorObjections[sig.ObjectionType]
		if isNew && len(priorObjections) < ObjectionHandleCap {
			return Action{
				Type:        ActionHandleObjection,
				MessageGoal: objectionGoal(sig.ObjectionType),
				ReasonCodes: []string{"OBJECTION_" + strings.ToUpper(sig.ObjectionType)},
			}
		}
		// Already handled or cap reached: record the skip and continue to
		// slot probing/close.
		reasons = append(reasons, "OBJECTION_SKIPPED_"+strings.ToUpper(sig.ObjectionType))
	}

	if len(missing) == 0 && state.InterestScore >= 6 {
		return Action{
			Type:        ActionClose,
			MessageGoal: "Propose next step — all qualifications met",
			ReasonCodes: append(reasons, "ALL_SLOTS_FILLED", "SCORE_STRONG_ENOUGH"),
		}
	}

	if len(missing) > 0 {
		var next Slot
		if state.Stage == StageIntro {
			// Always open with pain so the stage machine moves to DISCOVERY.
			next = SlotPain
			reasons = append(reasons, "INTRO_TO_DISCOVERY")
		} else {
			next = missing[0]
		}
		reasons = append(reasons, "MISSING_SLOT_"+strings.ToUpper(string(next)))
		return Action{
			Type:        ActionAskSlot,
			Slot:        next,
			MessageGoal: slotGoal(next),
			ReasonCodes: reasons,
		}
	}

	// Unreachable: rules 1-6 are exhaustive over the missing/score partitions.
	return Action{
		Type:        ActionEnd,
		MessageGoal: "No further actions available — end call gracefully",
		ReasonCodes: append(reasons, "FALLBACK_NO_ACTION"),
	}
}

var slotGoals = map[Slot]string{
	SlotPain:        "Ask about current challenges and pain points in their workflow",
	SlotCompanySize: "Ask about team or company size to understand scale",
	SlotAuthority:   "Determine if the prospect is the decision-maker",
	SlotBudget:      "Explore whether budget is available for a solution",
	SlotTimeline:    "Understand their timeline for implementing a solution",
}

func slotGoal(slot Slot) string {
	if g, ok := slotGoals[slot]; ok {
		return g
	}
	return "Probe for information about " + string(slot)
}

var objectionGoals = map[string]string{
	"not_interested":    "Acknowledge disinterest, ask one clarifying question about their current approach",
	"already_have_tool": "Acknowledge their current tool, explore gaps or frustrations with it",
	"too_expensive":     "Reframe around ROI and value, ask what budget range would work",
	"send_email":        "Agree to send info, but first ask one qualifying question",
	"busy":              "Respect their time, offer to schedule a brief 5-min follow-up",
}

func objectionGoal(typ string) string {
	if g, ok := objectionGoals[typ]; ok {
		return g
	}
	return "Address the '" + typ + "' objection with empathy and a pivot question"
}
