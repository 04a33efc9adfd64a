package call

import "testing"

func TestNextStageTransitions(t *testing.T) {
	cases := []struct {
		from   Stage
		action ActionType
		want   Stage
	}{
		{StageIntro, ActionAskSlot, StageDiscovery},
		{StageDiscovery, ActionAskSlot, StageQualify},
		{StageQualify, ActionAskSlot, StageQualify},
		{StageObjection, ActionAskSlot, StageQualify},
		{StageQualify, ActionHandleObjection, StageObjection},
		{StageDiscovery, ActionClose, StageClose},
		{StageIntro, ActionEnd, StageEnd},
		{StageClose, ActionEnd, StageEnd},
	}
	for _, c := range cases {
		got := NextStage(c.from, Action{Type: c.action})
		if got != c.want {
			t.Fatalf("%s + %s: expected %s, got %s", c.from, c.action, c.want, got)
		}
	}
}

func TestEndStageAbsorbing(t *testing.T) {
	for _, typ := range []ActionType{ActionAskSlot, ActionHandleObjection, ActionClose, ActionEnd} {
		if got := NextStage(StageEnd, Action{Type: typ}); got != StageEnd {
			t.Fatalf("END must absorb %s, got %s", typ, got)
		}
	}
}

func TestTerminalStage(t *testing.T) {
	if !StageEnd.Terminal() {
		t.Fatal("END must be terminal")
	}
	for _, st := range []Stage{StageIntro, StageDiscovery, StageQualify, StageObjection, StageClose} {
		if st.Terminal() {
			t.Fatalf("%s must not be terminal", st)
		}
	}
}
