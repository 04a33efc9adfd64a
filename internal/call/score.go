package call

import (
	"fmt"
	"math"
	"strings"
)

// Scoring model, additive with clamp to [0,10]:
//
//	+2  pain >= 7           (strong pain signal)
//	+1  pain 4-6            (moderate pain)
//	+1  company_size >= 20  (meaningful account)
//	+2  authority true      (talking to the decision-maker)
//	+2  budget true         (budget available)
//	+1  timeline present    (and not "unknown")
//	-1  per strong objection category, -0.5 per mild, total capped at -2
//
// The score is recomputed from the full state every turn, never adjusted
// incrementally, so it cannot drift from the state.

const objectionPenaltyCap = 2.0

var strongObjections = map[string]bool{
	"already_have_tool": true,
	"not_interested":    true,
	"too_expensive":     true,
}

var mildObjections = map[string]bool{
	"send_email": true,
	"busy":       true,
}

// ScoreItem is one line of the itemized score breakdown.
type ScoreItem struct {
	Field  string  `json:"field"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// Score computes the opportunity score (0-10) from the current state.
// The penalty is capped exactly here; the breakdown rescales its line items
// to match, so a rounding difference in the items never leaks into the score.
func Score(s *ProspectState) float64 {
	score := 0.0
	penalty := 0.0
	for _, item := range Breakdown(s) {
		if item.Field == "objection" {
			continue
		}
		score += item.Points
	}
	for _, obj := range s.Objections {
		switch {
		case strongObjections[obj]:
			penalty += 1.0
		case mildObjections[obj]:
			penalty += 0.5
		}
	}
	score -= math.Min(penalty, objectionPenaltyCap)
	return math.Max(0, math.Min(10, score))
}

// Breakdown returns the itemized scoring contributions. Zero-point items
// are included for slots that were learned but earn nothing, so the trace
// can explain the absence of points. Penalty items are proportionally
// rescaled when the raw penalty exceeds the cap, so the breakdown still
// sums to the applied score.
func Breakdown(s *ProspectState) []ScoreItem {
	var items []ScoreItem

	if p := s.Learned.Pain; p != nil {
		switch {
		case *p >= 7:
			items = append(items, ScoreItem{"pain", 2.0, fmt.Sprintf("Strong pain signal (%d/10)", *p)})
		case *p >= 4:
			items = append(items, ScoreItem{"pain", 1.0, fmt.Sprintf("Moderate pain (%d/10)", *p)})
		default:
			items = append(items, ScoreItem{"pain", 0.0, fmt.Sprintf("Low pain (%d/10)", *p)})
		}
	}

	if size := s.Learned.CompanySize; size != nil {
		if *size >= 20 {
			items = append(items, ScoreItem{"company_size", 1.0, fmt.Sprintf("Meaningful account (%d employees)", *size)})
		} else {
			items = append(items, ScoreItem{"company_size", 0.0, fmt.Sprintf("Small account (%d employees)", *size)})
		}
	}

	if a := s.Learned.Authority; a != nil {
		if *a {
			items = append(items, ScoreItem{"authority", 2.0, "Decision-maker confirmed"})
		} else {
			items = append(items, ScoreItem{"authority", 0.0, "Not a decision-maker"})
		}
	}

	if b := s.Learned.Budget; b != nil {
		if *b {
			items = append(items, ScoreItem{"budget", 2.0, "Budget available"})
		} else {
			items = append(items, ScoreItem{"budget", 0.0, "No budget"})
		}
	}

	if t := s.Learned.Timeline; t != nil && *t != "unknown" {
		items = append(items, ScoreItem{"timeline", 1.0, "Timeline: " + *t})
	}

	// Penalty keys on distinct categories ever seen, not occurrence counts
	// (repeats do not deepen the penalty).
	penalty := 0.0
	var objItems []ScoreItem
	for _, obj := range s.Objections {
		switch {
		case strongObjections[obj]:
			objItems = append(objItems, ScoreItem{"objection", -1.0, "Objection: " + obj})
			penalty += 1.0
		case mildObjections[obj]:
			objItems = append(objItems, ScoreItem{"objection", -0.5, "Mild objection: " + obj})
			penalty += 0.5
		}
	}
	if penalty > objectionPenaltyCap {
		scale := objectionPenaltyCap / penalty
		for i := range objItems {
			objItems[i].Points = math.Round(objItems[i].Points*scale*10) / 10
		}
	}
	items = append(items, objItems...)

	return items
}

// LabelFromScore categorizes a numeric score.
//
//	Weak:   [0, 4)
//	Medium: [4, 7)
//	Strong: [7, 10]
func LabelFromScore(score float64) string {
	if score < 4.0 {
		return "Weak"
	}
	if score < 7.0 {
		return "Medium"
	}
	return "Strong"
}

// ScoreWithBreakdown computes the score plus its itemized breakdown and a
// one-line explanation, positives before deductions.
func ScoreWithBreakdown(s *ProspectState) (float64, []ScoreItem, string) {
	items := Breakdown(s)
	score := Score(s)
	label := LabelFromScore(score)

	var positives, negatives []string
	for _, item := range items {
		if item.Points > 0 {
			positives = append(positives, item.Reason)
		} else if item.Points < 0 {
			negatives = append(negatives, item.Reason)
		}
	}

	parts := []string{fmt.Sprintf("Score: %.1f/10 (%s).", score, label)}
	if len(positives) > 0 {
		parts = append(parts, "Positives: "+strings.Join(positives, "; ")+".")
	}
	if len(negatives) > 0 {
		parts = append(parts, "Deductions: "+strings.Join(negatives, "; ")+".")
	}
	if len(positives) == 0 && len(negatives) == 0 {
		parts = append(parts, "No qualification signals gathered.")
	}

	return score, items, strings.Join(parts, " ")
}
