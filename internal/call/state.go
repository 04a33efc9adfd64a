package call

// Confidence thresholds for the merge rules. The floor itself is passed in
// per call (configurable); these two govern overwrites and alignment.
const (
	// A signal this confident may fill a slot the agent did not ask about.
	alignmentOverrideConfidence = 0.85
	// A filled slot at or above this confidence is never overwritten except
	// by an explicit correction.
	stickyConfidence = 0.85
	// A re-observation must beat the recorded confidence by this margin to
	// overwrite a non-sticky slot.
	overwriteMargin = 0.25
)

// LearnedFields holds the five qualification slot values. Nil means unset.
type LearnedFields struct {
	Pain        *int    `json:"pain"`
	CompanySize *int    `json:"company_size"`
	Authority   *bool   `json:"authority"`
	Budget      *bool   `json:"budget"`
	Timeline    *string `json:"timeline"`
}

func (f *LearnedFields) filled(slot Slot) bool {
	switch slot {
	case SlotPain:
		return f.Pain != nil
	case SlotCompanySize:
		return f.CompanySize != nil
	case SlotAuthority:
		return f.Authority != nil
	case SlotBudget:
		return f.Budget != nil
	case SlotTimeline:
		return f.Timeline != nil
	}
	return false
}

// ProspectState is everything learned about the prospect during one call.
// It is owned by exactly one session and mutated only by MergeSignals and
// the per-turn bookkeeping in the engine.
type ProspectState struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	TurnCount int    `json:"turn_count"`

	Learned         LearnedFields  `json:"learned_fields"`
	Objections      []string       `json:"objections"`
	ObjectionCounts map[string]int `json:"objection_counts"`
	InterestScore   float64        `json:"interest_score"`

	// LastAskedSlot is the slot the agent most recently probed for. It
	// drives alignment gating in MergeSignals.
	LastAskedSlot Slot `json:"last_asked_slot,omitempty"`

	// Per-slot provenance, consulted when deciding whether a later
	// observation may overwrite an already-filled slot.
	SlotConfidences map[Slot]float64 `json:"slot_confidences,omitempty"`
	SlotSources     map[Slot]string  `json:"slot_sources,omitempty"`

	LastUserText  string `json:"last_user_text,omitempty"`
	LastAgentText string `json:"last_agent_text,omitempty"`
}

// NewProspectState returns a fresh state in INTRO with no slots filled.
func NewProspectState(sessionID string) *ProspectState {
	return &ProspectState{
		SessionID:       sessionID,
		Stage:           StageIntro,
		ObjectionCounts: make(map[string]int),
		SlotConfidences: make(map[Slot]float64),
		SlotSources:     make(map[Slot]string),
	}
}

// MissingSlots returns unfilled slots in probing priority order.
func (s *ProspectState) MissingSlots() []Slot {
	var out []Slot
	for _, slot := range SlotPriority {
		if !s.Learned.filled(slot) {
			out = append(out, slot)
		}
	}
	return out
}

// FilledSlots returns filled slots in probing priority order.
func (s *ProspectState) FilledSlots() []Slot {
	var out []Slot
	for _, slot := range SlotPriority {
		if s.Learned.filled(slot) {
			out = append(out, slot)
		}
	}
	return out
}

// MergeSignals merges one turn's extracted signals into the state.
//
// Slot updates are gated three ways:
//
//  1. Confidence floor: below minConfidence no slot update happens at all.
//  2. Alignment: when the agent just probed a specific slot and the
//     utterance is not a correction, a candidate value for a *different*
//     slot is accepted only if the signal names it as the answered slot,
//     carries confidence >= 0.85, or the utterance populated two or more
//     slots (a substantive multi-fact answer). This keeps a one-word
//     acknowledgment after a probe from being misattributed.
//  3. Stickiness: a filled slot is overwritten only by an explicit
//     correction, or by a re-observation at least 0.25 more confident than
//     the recorded value while that value is below 0.85.
//
// Objection bookkeeping is unconditional: objection *intent* is the signal
// of interest, independent of slot content, so it bypasses both the floor
// and the alignment gate.
func (s *ProspectState) MergeSignals(sig Signals, minConfidence float64, source string) {
	if sig.ObjectionType != "" {
		s.ObjectionCounts[sig.ObjectionType]++
		if !contains(s.Objections, sig.ObjectionType) {
			s.Objections = append(s.Objections, sig.ObjectionType)
		}
	}

	if sig.Confidence < minConfidence {
		return
	}

	explicitCount := sig.slotCount()

	if sig.Pain != nil && s.accept(SlotPain, sig, explicitCount) {
		v := *sig.Pain
		s.Learned.Pain = &v
		s.record(SlotPain, sig.Confidence, source)
	}
	if sig.CompanySize != nil && s.accept(SlotCompanySize, sig, explicitCount) {
		v := *sig.CompanySize
		s.Learned.CompanySize = &v
		s.record(SlotCompanySize, sig.Confidence, source)
	}
	if sig.Authority != nil && s.accept(SlotAuthority, sig, explicitCount) {
		v := *sig.Authority
		s.Learned.Authority = &v
		s.record(SlotAuthority, sig.Confidence, source)
	}
	if sig.Budget != nil && s.accept(SlotBudget, sig, explicitCount) {
		v := *sig.Budget
		s.Learned.Budget = &v
		s.record(SlotBudget, sig.Confidence, source)
	}
	if sig.Timeline != "" && s.accept(SlotTimeline, sig, explicitCount) {
		v := sig.Timeline
		s.Learned.Timeline = &v
		s.record(SlotTimeline, sig.Confidence, source)
	}
}

// accept decides whether a candidate value for slot passes the alignment
// gate and, for filled slots, the overwrite rules.
func (s *ProspectState) accept(slot Slot, sig Signals, explicitCount int) bool {
	// Alignment gate applies only while a probe is outstanding and the
	// utterance is not a correction.
	if s.LastAskedSlot != "" && !sig.IsCorrection {
		aligned := sig.AnsweredSlot == slot ||
			slot == s.LastAskedSlot ||
			sig.Confidence >= alignmentOverrideConfidence ||
			explicitCount >= 2
		if !aligned {
			return false
		}
	}

	if !s.Learned.filled(slot) {
		return true
	}

	if sig.IsCorrection {
		return true
	}
	prev := s.SlotConfidences[slot]
	return prev < stickyConfidence && sig.Confidence >= prev+overwriteMargin
}

func (s *ProspectState) record(slot Slot, confidence float64, source string) {
	s.SlotConfidences[slot] = confidence
	s.SlotSources[slot] = source
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
