package call

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent classifies what the prospect is doing in a single utterance.
const (
	IntentAnswer    = "answer"
	IntentObjection = "objection"
	IntentEnd       = "end"
	IntentOffTopic  = "off_topic"
)

// Slot is one of the five qualification fields the agent tries to fill.
type Slot string

const (
	SlotPain        Slot = "pain"
	SlotCompanySize Slot = "company_size"
	SlotAuthority   Slot = "authority"
	SlotBudget      Slot = "budget"
	SlotTimeline    Slot = "timeline"
)

// SlotPriority is the probing order: pain first because it drives urgency,
// then company_size (quick factual), authority, budget, timeline.
var SlotPriority = []Slot{SlotPain, SlotCompanySize, SlotAuthority, SlotBudget, SlotTimeline}

// Signals is the structured output of analyzing one user utterance.
// Rule-based extraction produces these deterministically; an LLM provider
// can produce the same shape. Nil pointer fields mean "not mentioned".
type Signals struct {
	Intent        string  `json:"intent"`
	CompanySize   *int    `json:"company_size"`
	Pain          *int    `json:"pain"`
	Budget        *bool   `json:"budget"`
	Authority     *bool   `json:"authority"`
	Timeline      string  `json:"timeline,omitempty"`
	ObjectionType string  `json:"objection_type,omitempty"`
	Confidence    float64 `json:"confidence"`
	AnsweredSlot  Slot    `json:"answered_slot,omitempty"`
	IsCorrection  bool    `json:"is_correction,omitempty"`
}

// slotCount returns how many distinct slots this utterance populated.
func (sig Signals) slotCount() int {
	n := 0
	if sig.CompanySize != nil {
		n++
	}
	if sig.Pain != nil {
		n++
	}
	if sig.Budget != nil {
		n++
	}
	if sig.Authority != nil {
		n++
	}
	if sig.Timeline != "" {
		n++
	}
	return n
}

// Objection patterns, first match wins.
var objectionPatterns = []struct {
	re  *regexp.Regexp
	typ string
}{
	{regexp.MustCompile(`\bnot interested\b`), "not_interested"},
	{regexp.MustCompile(`\bno thanks\b`), "not_interested"},
	{regexp.MustCompile(`\bdon'?t need\b`), "not_interested"},
	{regexp.MustCompile(`\balready (?:use|have|got)\b`), "already_have_tool"},
	{regexp.MustCompile(`\bwe use\b`), "already_have_tool"},
	{regexp.MustCompile(`\btoo expensive\b`), "too_expensive"},
	{regexp.MustCompile(`\bcan'?t afford\b`), "too_expensive"},
	{regexp.MustCompile(`\bno budget\b`), "too_expensive"},
	{regexp.MustCompile(`\bsend (?:me |an )?(?:email|details|info)\b`), "send_email"},
	{regexp.MustCompile(`\bjust (?:email|send)\b`), "send_email"},
	{regexp.MustCompile(`\bbusy\b`), "busy"},
	{regexp.MustCompile(`\bbad time\b`), "busy"},
	{regexp.MustCompile(`\bcall (?:me )?back\b`), "busy"},
}

var endPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bgoodbye\b`),
	regexp.MustCompile(`\bhang up\b`),
	regexp.MustCompile(`\bgotta go\b`),
	regexp.MustCompile(`\bend (?:the )?call\b`),
}

var correctionRe = regexp.MustCompile(`\b(?:actually|i meant?|correction|i misspoke|to be precise)\b`)

var companySizeRe = regexp.MustCompile(`(\d+)\s*(?:people|employees|folks|team|person|engineers|devs)`)

// Pain keyword -> severity (0-10). Max severity among matches wins.
var painKeywords = map[string]int{
	"struggling": 8, "painful": 8, "frustrated": 7, "waste": 7,
	"slow": 6, "manual": 6, "tedious": 6, "hours": 5,
	"annoying": 5, "problem": 5, "issue": 4, "challenge": 4,
}

var (
	budgetYesRe      = regexp.MustCompile(`\b(?:have|got|set aside|allocated)\b.*\bbudget\b`)
	budgetNoRe       = regexp.MustCompile(`\b(?:no budget|can'?t afford|too expensive)\b`)
	budgetDeferredRe = regexp.MustCompile(`\bbudget\b.*\b(?:maybe|depends|later|next quarter)\b`)
)

// Delegation/negative authority is checked before the positive and title
// patterns: "my manager" contains "manager" and would otherwise falsely
// match a title check.
var (
	authorityNoRe    = regexp.MustCompile(`\b(?:need to ask|check with|my boss|my manager|not the decision)\b`)
	authorityYesRe   = regexp.MustCompile(`\bi (?:decide|approve|sign off|own|handle|make the call)\b`)
	authorityTitleRe = regexp.MustCompile(`\b(?:vp|director|head of|cto|ceo|founder)\b`)
)

var timelineRe = regexp.MustCompile(
	`\b(?:this quarter|next quarter|q[1-4]|this month|next month` +
		`|this year|next year|asap|immediately|soon|later|no rush)\b`)

var greetingRe = regexp.MustCompile(`\b(?:hello|hi|hey|what'?s this|who is this)\b`)

// ExtractRuleBased performs cheap, deterministic signal extraction from a
// single utterance using keyword heuristics. It is the fallback behind any
// LLM extraction provider and is intentionally conservative: low recall on
// nuanced language, zero latency, no API cost.
func ExtractRuleBased(userText string) Signals {
	text := strings.TrimSpace(strings.ToLower(userText))
	sig := Signals{Intent: IntentAnswer, Confidence: 0.5}

	// Correction markers do not short-circuit further extraction.
	if correctionRe.MatchString(text) {
		sig.IsCorrection = true
	}

	// End-of-call intent suppresses all other extraction.
	for _, re := range endPatterns {
		if re.MatchString(text) {
			sig.Intent = IntentEnd
			sig.Confidence = 0.8
			return sig
		}
	}

	// Objections: first category to match wins, but keep going since the
	// same utterance may still carry slot content.
	for _, p := range objectionPatterns {
		if p.re.MatchString(text) {
			sig.Intent = IntentObjection
			sig.ObjectionType = p.typ
			sig.Confidence = 0.7
			break
		}
	}

	// Company size: number adjacent to a headcount noun.
	if m := companySizeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			sig.CompanySize = &n
			sig.Confidence = maxf(sig.Confidence, 0.7)
		}
	}

	// Pain severity: maximum among matched keywords.
	maxPain := -1
	for kw, score := range painKeywords {
		if strings.Contains(text, kw) && score > maxPain {
			maxPain = score
		}
	}
	if maxPain >= 0 {
		p := maxPain
		sig.Pain = &p
	}

	// Budget tri-state. A deferred "maybe later" phrasing is a soft no that
	// also implies an uncertain timeline.
	switch {
	case budgetYesRe.MatchString(text):
		sig.Budget = boolPtr(true)
	case budgetNoRe.MatchString(text):
		sig.Budget = boolPtr(false)
	case budgetDeferredRe.MatchString(text):
		sig.Budget = boolPtr(false)
		sig.Timeline = "uncertain"
	}

	// Authority tri-state, delegation before self-claim before title.
	switch {
	case authorityNoRe.MatchString(text):
		sig.Authority = boolPtr(false)
	case authorityYesRe.MatchString(text):
		sig.Authority = boolPtr(true)
		sig.Confidence = maxf(sig.Confidence, 0.7)
	case authorityTitleRe.MatchString(text):
		sig.Authority = boolPtr(true)
	}

	// Timeline vocabulary match (unless the budget inference already set it).
	if sig.Timeline == "" {
		if m := timelineRe.FindString(text); m != "" {
			sig.Timeline = m
		}
	}

	hasSlots := sig.slotCount() > 0
	if hasSlots {
		sig.Confidence = maxf(sig.Confidence, 0.6)
	}

	// No content and no objection: greeting is still an answer, but very
	// short non-greeting utterances are classified off-topic.
	if sig.Intent == IntentAnswer && !hasSlots {
		if greetingRe.MatchString(text) {
			sig.Confidence = 0.6
		} else if len(strings.Fields(text)) <= 3 {
			sig.Intent = IntentOffTopic
			sig.Confidence = 0.3
		}
	}

	return sig
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
