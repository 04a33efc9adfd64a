package engine

import (
	"context"
	"testing"
	"time"

	"roister/agent/internal/call"
	"roister/agent/internal/store"
)

func newTestEngine() *Engine {
	return &Engine{
		Store:         store.New(),
		MinConfidence: 0.35,
	}
}

func TestStartSession(t *testing.T) {
	e := newTestEngine()

	sess, opener, err := e.StartSession("s1", store.ModeHuman)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if opener != Opener {
		t.Fatalf("opener = %q", opener)
	}
	if sess.State.Stage != call.StageIntro {
		t.Fatalf("initial stage = %s", sess.State.Stage)
	}
	if sess.State.LastAgentText != Opener {
		t.Fatalf("LastAgentText not set to opener")
	}

	if _, _, err := e.StartSession("s1", store.ModeHuman); err != store.ErrSessionExists {
		t.Fatalf("duplicate start err = %v", err)
	}

	// Empty id gets generated.
	sess2, _, err := e.StartSession("", store.ModeHuman)
	if err != nil {
		t.Fatalf("StartSession(empty): %v", err)
	}
	if sess2.ID == "" {
		t.Fatalf("expected generated session id")
	}
}

func TestProcessTurnUnknownSession(t *testing.T) {
	e := newTestEngine()
	if _, err := e.ProcessTurn(context.Background(), "nope", "hello"); err != store.ErrSessionNotFound {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

// A cooperative prospect who reveals pain, size, authority, budget and
// timeline should be closed as a Strong lead.
func TestStrongLeadClosesStrong(t *testing.T) {
	e := newTestEngine()
	e.StartSession("strong", store.ModeHuman)
	ctx := context.Background()

	turns := []string{
		"Yeah sure, I have a minute. What's this about?",
		"Honestly, outbound is a huge pain point for us. We're spending way too much time on manual work.",
		"We're about 50 people on the sales team.",
		"Yes, I'm the VP of Sales, I make the call on tools like this.",
		"We do have budget set aside for this quarter.",
	}

	var res TurnResult
	var err error
	for _, text := range turns {
		res, err = e.ProcessTurn(ctx, "strong", text)
		if err != nil {
			t.Fatalf("ProcessTurn(%q): %v", text, err)
		}
	}

	if !res.Ended {
		t.Fatalf("expected call to end with a close, got status %s", res.Status)
	}
	if res.Outcome == nil {
		t.Fatalf("expected outcome on ended call")
	}
	if res.Outcome.OpportunityLabel != "Strong" {
		t.Fatalf("label = %s, want Strong (score %.1f)", res.Outcome.OpportunityLabel, res.Outcome.OpportunityScore)
	}
	if res.Outcome.OpportunityScore < 7.0 {
		t.Fatalf("score = %.1f, want >= 7", res.Outcome.OpportunityScore)
	}
	sess, _ := e.Store.Get("strong")
	if sess.Trace.EndedReason != "ALL_SLOTS_FILLED" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}

	lf := res.Outcome.LearnedFields
	if lf.Pain == nil || lf.CompanySize == nil || lf.Authority == nil || lf.Budget == nil || lf.Timeline == nil {
		t.Fatalf("expected all slots filled, got %+v", lf)
	}
	if *lf.CompanySize != 50 || !*lf.Authority || !*lf.Budget {
		t.Fatalf("learned fields wrong: %+v", lf)
	}

	// The closing turn uses the deterministic close wording.
	last := res.Outcome.DecisionTrace[len(res.Outcome.DecisionTrace)-1]
	if last.Action.Type != call.ActionClose {
		t.Fatalf("final action = %s, want CLOSE", last.Action.Type)
	}
	if last.AgentText != closeText {
		t.Fatalf("close wording = %q", last.AgentText)
	}
}

// An uncooperative prospect who objects twice and hangs up ends Weak with
// the user-ended reason.
func TestWeakLeadEndsWeak(t *testing.T) {
	e := newTestEngine()
	e.StartSession("weak", store.ModeHuman)
	ctx := context.Background()

	res, err := e.ProcessTurn(ctx, "weak", "I'm really not interested, we already have a tool for this.")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.Ended {
		t.Fatalf("turn 1 should not end the call")
	}
	if res.AgentText != objectionResponses["not_interested"] {
		t.Fatalf("turn 1 wording = %q", res.AgentText)
	}

	if _, err := e.ProcessTurn(ctx, "weak", "Look, can you just send me an email?"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	res, err = e.ProcessTurn(ctx, "weak", "No thanks, goodbye.")
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if !res.Ended || res.Outcome == nil {
		t.Fatalf("expected ended call with outcome")
	}
	if res.Outcome.OpportunityLabel != "Weak" {
		t.Fatalf("label = %s, want Weak", res.Outcome.OpportunityLabel)
	}
	if res.Outcome.OpportunityScore != 0 {
		t.Fatalf("score = %.1f, want 0", res.Outcome.OpportunityScore)
	}
	sess, _ := e.Store.Get("weak")
	if sess.Trace.EndedReason != "USER_ENDED" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}
	if res.AgentText != endTexts["USER_ENDED"] {
		t.Fatalf("sign-off = %q", res.AgentText)
	}
}

// Partial qualification with objections stays running but scores Weak.
func TestObjectionHeavyStaysWeak(t *testing.T) {
	e := newTestEngine()
	e.StartSession("heavy", store.ModeHuman)
	ctx := context.Background()

	turns := []string{
		"Fine, I've got a minute.",
		"Our outbound is painful yeah, maybe a 6. We're about 30 people.",
		"We already have a tool actually, it's okay but not great.",
		"I'm not the decision maker, that would be my manager.",
		"I don't think there's budget for another tool right now.",
		"Maybe send me some info and I'll pass it along.",
	}

	var res TurnResult
	var err error
	for _, text := range turns {
		res, err = e.ProcessTurn(ctx, "heavy", text)
		if err != nil {
			t.Fatalf("ProcessTurn(%q): %v", text, err)
		}
	}

	if res.Ended {
		t.Fatalf("call should still be running")
	}
	if res.OpportunityScore > 3.9 {
		t.Fatalf("score = %.1f, want Weak range", res.OpportunityScore)
	}

	sess, _ := e.Store.Get("heavy")
	if sess.State.Learned.Pain == nil || sess.State.Learned.CompanySize == nil {
		t.Fatalf("expected pain and company_size learned")
	}
	if sess.State.Learned.Authority == nil || *sess.State.Learned.Authority {
		t.Fatalf("expected authority learned as false")
	}
}

// A busy objection ends the call immediately, even mid-conversation with an
// objection already handled. The resulting lead is Weak.
func TestBusyObjectionAlwaysEnds(t *testing.T) {
	e := newTestEngine()
	e.StartSession("busy", store.ModeHuman)
	ctx := context.Background()

	res, err := e.ProcessTurn(ctx, "busy", "We already have a tool for that.")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.Ended {
		t.Fatalf("handled objection should not end the call")
	}

	res, err = e.ProcessTurn(ctx, "busy", "I'm really busy right now, sorry.")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if !res.Ended {
		t.Fatalf("busy objection should end the call")
	}
	sess, _ := e.Store.Get("busy")
	if sess.Trace.EndedReason != "CALLBACK_REQUESTED" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}
	if res.AgentText != endTexts["CALLBACK_REQUESTED"] {
		t.Fatalf("sign-off = %q", res.AgentText)
	}
	if res.Outcome.OpportunityLabel != "Weak" {
		t.Fatalf("label = %s, want Weak", res.Outcome.OpportunityLabel)
	}
}

// A third distinct objection is skipped, not handled, once two have been
// addressed.
func TestObjectionHandleCap(t *testing.T) {
	e := newTestEngine()
	e.StartSession("cap", store.ModeHuman)
	ctx := context.Background()

	e.ProcessTurn(ctx, "cap", "I'm not interested in this at all.")
	e.ProcessTurn(ctx, "cap", "It sounds too expensive for a team like ours.")
	res, err := e.ProcessTurn(ctx, "cap", "We already have a tool that does most of this.")
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}

	sess, _ := e.Store.Get("cap")
	last := sess.Trace.Turns[len(sess.Trace.Turns)-1]
	if last.Action.Type != call.ActionAskSlot {
		t.Fatalf("third objection action = %s, want ASK_SLOT", last.Action.Type)
	}
	if last.Reasons[0] != "OBJECTION_SKIPPED_ALREADY_HAVE_TOOL" {
		t.Fatalf("reasons = %v", last.Reasons)
	}
	if res.Ended {
		t.Fatalf("call should continue after a skipped objection")
	}
}

func TestTurnLimitEndsCall(t *testing.T) {
	e := newTestEngine()
	e.StartSession("limit", store.ModeHuman)
	ctx := context.Background()

	var res TurnResult
	var err error
	for i := 0; i < call.TurnLimit; i++ {
		res, err = e.ProcessTurn(ctx, "limit", "could you tell me a bit more about that please")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
	}
	if !res.Ended {
		t.Fatalf("call should end at the turn limit")
	}
	sess, _ := e.Store.Get("limit")
	if sess.Trace.EndedReason != "TURN_LIMIT_REACHED" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}
}

// A correction overwrites an already-filled slot even though the answer is
// off the asked slot.
func TestCorrectionOverwritesSlot(t *testing.T) {
	e := newTestEngine()
	e.StartSession("corr", store.ModeHuman)
	ctx := context.Background()

	e.ProcessTurn(ctx, "corr", "We're about 50 people on the team right now.")
	e.ProcessTurn(ctx, "corr", "Actually, I meant 200 people across the whole team.")

	sess, _ := e.Store.Get("corr")
	if got := sess.State.Learned.CompanySize; got == nil || *got != 200 {
		t.Fatalf("company size = %v, want 200", got)
	}
}

// An off-slot, low-confidence answer does not fill a slot the agent did not
// ask about.
func TestMisalignedAnswerBlocked(t *testing.T) {
	e := newTestEngine()
	e.StartSession("align", store.ModeHuman)
	ctx := context.Background()

	// Agent opens by asking about pain.
	e.ProcessTurn(ctx, "align", "Hello, who is this?")
	e.ProcessTurn(ctx, "align", "We're 15 people or so.")

	sess, _ := e.Store.Get("align")
	if sess.State.Learned.CompanySize != nil {
		t.Fatalf("off-slot company size should be blocked while pain is pending")
	}
}

// Processing a turn on a completed session returns the stored outcome and
// appends nothing.
func TestTurnAfterCompletionIsIdempotent(t *testing.T) {
	e := newTestEngine()
	e.StartSession("done", store.ModeHuman)
	ctx := context.Background()

	res1, err := e.ProcessTurn(ctx, "done", "Goodbye.")
	if err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if !res1.Ended {
		t.Fatalf("expected ended")
	}

	sess, _ := e.Store.Get("done")
	turnsBefore := len(sess.Trace.Turns)

	res2, err := e.ProcessTurn(ctx, "done", "Hello again?")
	if err != nil {
		t.Fatalf("post-end turn: %v", err)
	}
	if !res2.Ended || res2.Outcome != res1.Outcome {
		t.Fatalf("expected the same stored outcome back")
	}
	if len(sess.Trace.Turns) != turnsBefore {
		t.Fatalf("trace grew after completion")
	}
}

func TestFinalizeSilence(t *testing.T) {
	e := newTestEngine()
	e.StartSession("quiet", store.ModeHuman)
	ctx := context.Background()

	e.ProcessTurn(ctx, "quiet", "Sure, we're struggling with manual outreach honestly.")
	e.FinalizeSilence("quiet")

	sess, _ := e.Store.Get("quiet")
	if sess.Status != store.StatusCompleted || sess.Outcome == nil {
		t.Fatalf("expected completed session with outcome")
	}
	if sess.Trace.EndedReason != "SILENCE_TIMEOUT" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}
	last := sess.Trace.Turns[len(sess.Trace.Turns)-1]
	if last.AgentText != endTexts["SILENCE_TIMEOUT"] {
		t.Fatalf("sign-off = %q", last.AgentText)
	}

	// The sign-off counts as a turn: state and trace agree on the total.
	if sess.State.TurnCount != len(sess.Trace.Turns) {
		t.Fatalf("turn count = %d, trace has %d turns", sess.State.TurnCount, len(sess.Trace.Turns))
	}
	if last.TurnIndex != sess.State.TurnCount {
		t.Fatalf("sign-off turn index = %d, want %d", last.TurnIndex, sess.State.TurnCount)
	}

	// Second finalize is a no-op.
	outcome := sess.Outcome
	e.FinalizeSilence("quiet")
	if sess.Outcome != outcome {
		t.Fatalf("outcome replaced on repeat finalize")
	}
}

// The silence hook fires once with the final result, and not again on a
// repeat finalize.
func TestFinalizeSilenceNotifies(t *testing.T) {
	e := newTestEngine()
	e.StartSession("notify", store.ModeHuman)

	var got []TurnResult
	e.OnSilence = func(id string, res TurnResult) {
		if id != "notify" {
			t.Fatalf("hook session = %q", id)
		}
		got = append(got, res)
	}

	e.FinalizeSilence("notify")
	e.FinalizeSilence("notify")

	if len(got) != 1 {
		t.Fatalf("hook fired %d times, want 1", len(got))
	}
	if !got[0].Ended || got[0].Outcome == nil {
		t.Fatalf("hook result = %+v", got[0])
	}
}

func TestWatchdogClosesIdleSession(t *testing.T) {
	e := newTestEngine()
	e.StartSession("idle", store.ModeHuman)

	ctx, cancel := context.WithCancel(context.Background())
	go e.RunWatchdog(ctx, 50*time.Millisecond, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, _ := e.Store.Get("idle")
		sess.Lock()
		done := sess.Status == store.StatusCompleted
		sess.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("watchdog did not close the idle session")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	sess, _ := e.Store.Get("idle")
	if sess.Trace.EndedReason != "SILENCE_TIMEOUT" {
		t.Fatalf("ended reason = %s", sess.Trace.EndedReason)
	}
}

func TestProspectTurnScriptedFallback(t *testing.T) {
	e := newTestEngine()
	e.StartSession("sim", store.ModeAI)
	ctx := context.Background()

	res, err := e.ProspectTurn(ctx, "sim")
	if err != nil {
		t.Fatalf("ProspectTurn: %v", err)
	}
	if res.ProspectText != scriptedProspect[0] {
		t.Fatalf("prospect text = %q", res.ProspectText)
	}
	if res.AgentText == "" {
		t.Fatalf("expected an agent reply")
	}

	// The scripted prospect always drives the call to completion within the
	// turn limit.
	for i := 0; i < call.TurnLimit && !res.Ended; i++ {
		res, err = e.ProspectTurn(ctx, "sim")
		if err != nil {
			t.Fatalf("ProspectTurn loop: %v", err)
		}
	}
	if !res.Ended || res.Outcome == nil {
		t.Fatalf("simulated call did not finish")
	}
}

func TestProspectTurnRejectsHumanMode(t *testing.T) {
	e := newTestEngine()
	e.StartSession("hmn", store.ModeHuman)

	if _, err := e.ProspectTurn(context.Background(), "hmn"); err != ErrNotAIProspect {
		t.Fatalf("err = %v, want ErrNotAIProspect", err)
	}
}

// Identical inputs produce identical outcomes across engines.
func TestDeterministicAcrossRuns(t *testing.T) {
	run := func() call.Outcome {
		e := newTestEngine()
		e.StartSession("det", store.ModeHuman)
		ctx := context.Background()
		e.ProcessTurn(ctx, "det", "Outbound is painful, we waste hours every week.")
		e.ProcessTurn(ctx, "det", "About 40 people on the team.")
		res, _ := e.ProcessTurn(ctx, "det", "Alright, goodbye.")
		return *res.Outcome
	}

	a, b := run(), run()
	if a.OpportunityScore != b.OpportunityScore || a.Summary != b.Summary {
		t.Fatalf("outcomes differ:\n%+v\n%+v", a, b)
	}
	if len(a.DecisionTrace) != len(b.DecisionTrace) {
		t.Fatalf("trace lengths differ")
	}
	for i := range a.DecisionTrace {
		if a.DecisionTrace[i].AgentText != b.DecisionTrace[i].AgentText {
			t.Fatalf("turn %d wording differs", i)
		}
	}
}
