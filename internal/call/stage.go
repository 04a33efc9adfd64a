package call

// Stage is the conversation phase of a cold call.
//
//	INTRO      opening, rapport building
//	DISCOVERY  open-ended probing (pain, workflow)
//	QUALIFY    explicit slot-filling
//	OBJECTION  handling pushback
//	CLOSE      asking for the next step (demo, meeting)
//	END        call is over (absorbing)
type Stage string

const (
	StageIntro     Stage = "INTRO"
	StageDiscovery Stage = "DISCOVERY"
	StageQualify   Stage = "QUALIFY"
	StageObjection Stage = "OBJECTION"
	StageClose     Stage = "CLOSE"
	StageEnd       Stage = "END"
)

// Terminal reports whether no further turns are processed in this stage.
func (s Stage) Terminal() bool { return s == StageEnd }

// NextStage maps (current stage, chosen action) to the next stage.
// Keyed only on the action type; END is absorbing.
func NextStage(current Stage, action Action) Stage {
	if current == StageEnd {
		return StageEnd
	}
	switch action.Type {
	case ActionEnd:
		return StageEnd
	case ActionClose:
		return StageClose
	case ActionHandleObjection:
		return StageObjection
	case ActionAskSlot:
		if current == StageIntro {
			return StageDiscovery
		}
		// After an objection detour, go back to qualifying.
		return StageQualify
	}
	return current
}
