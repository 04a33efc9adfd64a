// Command simulate runs scripted cold-call scenarios through the turn
// engine and checks the final outcomes. Runs entirely in-process with the
// rule-based extractor, so results are deterministic and need no API key.
//
// Usage:
//
//	go run ./cmd/simulate [-scenario strong_lead] [-v]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"roister/agent/internal/call"
	"roister/agent/internal/engine"
	"roister/agent/internal/store"
)

type scenario struct {
	name        string
	description string
	turns       []string

	expectedLabel string
	minScore      float64
	maxScore      float64
	expectedSlots []call.Slot
}

var scenarios = []scenario{
	{
		name: "strong_lead",
		description: "Cooperative prospect reveals high pain, decent size, " +
			"authority, budget, and timeline. Should score Strong.",
		turns: []string{
			"Yeah sure, I have a minute. What's this about?",
			"Honestly, outbound is a huge pain point for us. " +
				"We're spending way too much time on manual work.",
			"We're about 50 people on the sales team.",
			"Yes, I'm the VP of Sales, I make the call on tools like this.",
			"We do have budget set aside for this quarter.",
			"We're looking to get something in place this quarter, ideally ASAP.",
			"Sure, I'd be open to a demo. Let's do it.",
		},
		expectedLabel: "Strong",
		minScore:      7.0,
		maxScore:      10.0,
		expectedSlots: []call.Slot{call.SlotPain, call.SlotCompanySize, call.SlotAuthority, call.SlotBudget, call.SlotTimeline},
	},
	{
		name: "weak_lead",
		description: "Prospect is not interested, gives minimal info, " +
			"raises strong objection. Should score Weak.",
		turns: []string{
			"I'm really not interested, we already have a tool for this.",
			"Look, I'm really busy right now, can you just send me an email?",
			"No thanks, goodbye.",
		},
		expectedLabel: "Weak",
		minScore:      0.0,
		maxScore:      3.9,
	},
	{
		name: "objection_heavy",
		description: "Prospect shares some info but raises multiple objections. " +
			"Should end up Weak.",
		turns: []string{
			"Fine, I've got a minute.",
			"Our outbound is painful yeah, maybe a 6. We're about 30 people.",
			"We already have a tool actually, it's okay but not great.",
			"I'm not the decision maker, that would be my manager.",
			"I don't think there's budget for another tool right now.",
			"Maybe send me some info and I'll pass it along.",
		},
		expectedLabel: "Weak",
		minScore:      0.0,
		maxScore:      3.9,
		expectedSlots: []call.Slot{call.SlotPain, call.SlotCompanySize},
	},
}

func main() {
	only := flag.String("scenario", "", "run only the named scenario")
	verbose := flag.Bool("v", false, "print every turn")
	flag.Parse()

	fmt.Println("============================================================")
	fmt.Println("Roister Cold-Call Evaluation Harness")
	fmt.Println("============================================================")
	fmt.Println()

	passed, total := 0, 0
	for _, sc := range scenarios {
		if *only != "" && sc.name != *only {
			continue
		}
		total++
		fmt.Printf("--- %s: %s\n", sc.name, sc.description)

		failures := runScenario(sc, *verbose)
		if len(failures) == 0 {
			fmt.Println("  PASS")
			passed++
		} else {
			fmt.Println("  FAIL:")
			for _, f := range failures {
				fmt.Printf("    - %s\n", f)
			}
		}
		fmt.Println()
	}

	fmt.Println("============================================================")
	fmt.Printf("Results: %d/%d passed\n", passed, total)
	fmt.Println("============================================================")
	if passed < total {
		os.Exit(1)
	}
}

func runScenario(sc scenario, verbose bool) []string {
	var failures []string
	ctx := context.Background()

	eng := &engine.Engine{
		Store:          store.New(),
		MinConfidence:  0.35,
		ForceRuleBased: true,
	}
	sess, opener, err := eng.StartSession("", store.ModeHuman)
	if err != nil {
		return []string{fmt.Sprintf("start session: %v", err)}
	}
	if verbose {
		fmt.Printf("  agent>    %s\n", opener)
	}

	var last engine.TurnResult
	for _, text := range sc.turns {
		last, err = eng.ProcessTurn(ctx, sess.ID, text)
		if err != nil {
			return []string{fmt.Sprintf("process turn: %v", err)}
		}
		if verbose {
			fmt.Printf("  prospect> %s\n", text)
			fmt.Printf("  agent>    %s\n", last.AgentText)
		}
		if last.Ended {
			break
		}
	}

	score := last.OpportunityScore
	if last.Outcome != nil {
		score = last.Outcome.OpportunityScore
		if last.Outcome.OpportunityLabel != sc.expectedLabel {
			failures = append(failures, fmt.Sprintf(
				"label: expected %q, got %q", sc.expectedLabel, last.Outcome.OpportunityLabel))
		}
	}
	if score < sc.minScore {
		failures = append(failures, fmt.Sprintf("score too low: %.1f < %.1f", score, sc.minScore))
	}
	if score > sc.maxScore {
		failures = append(failures, fmt.Sprintf("score too high: %.1f > %.1f", score, sc.maxScore))
	}

	if len(sc.expectedSlots) > 0 {
		final, _ := eng.Store.Get(sess.ID)
		filled := map[call.Slot]bool{}
		for _, s := range final.State.FilledSlots() {
			filled[s] = true
		}
		for _, s := range sc.expectedSlots {
			if !filled[s] {
				failures = append(failures, fmt.Sprintf("expected slot %q to be filled", s))
			}
		}
	}

	return failures
}
