package engine

import "roister/agent/internal/call"

// Opener is the fixed line the agent starts every call with.
const Opener = "Hi there! This is Alex from Roister. I help teams streamline their " +
	"outbound sales process. Do you have a quick moment to chat about how " +
	"your team currently handles cold outreach?"

// Fixed wording tables, used whenever the wording provider is disabled or
// fails. Deterministic by construction: same action, same text.

var slotQuestions = map[call.Slot]string{
	call.SlotPain: "I'd love to understand your current workflow better. " +
		"What's the biggest challenge your team faces with outbound right now?",
	call.SlotCompanySize: "That's helpful context. Roughly how large is your team — " +
		"how many people are involved in outbound?",
	call.SlotAuthority: "Got it. And when it comes to evaluating a new tool like this, " +
		"are you the one who makes that call, or is there someone else involved?",
	call.SlotBudget: "Makes sense. Is there budget set aside for improving your outbound " +
		"process, or is that something you'd need to get approved?",
	call.SlotTimeline: "Understood. If this were a good fit, what would your timeline look " +
		"like for getting something like this up and running?",
}

var objectionResponses = map[string]string{
	"not_interested": "I totally understand — I wouldn't want to waste your time. " +
		"Just out of curiosity, how is your team currently handling outbound? " +
		"I ask because a lot of teams in your space have told us about similar frustrations.",
	"already_have_tool": "That's great that you already have something in place! " +
		"A lot of our customers actually came from other tools. " +
		"What would you say is the one thing you wish worked better with your current setup?",
	"too_expensive": "I hear you on cost — it's always a factor. Most of our customers " +
		"find the ROI pays for itself within the first quarter. " +
		"What does your current cost per qualified meeting look like?",
	"send_email": "Absolutely, I'll send that over right after this. Before I do — " +
		"just so I can tailor the info — what's the biggest pain point " +
		"you'd want a solution to address?",
	"busy": "Totally respect that. I can absolutely call you back — " +
		"would the time you mentioned work, or is there a better slot?",
}

const closeText = "Based on everything you've shared, it sounds like there could be a really " +
	"strong fit here. Would you be open to a 30-minute demo this week so I can " +
	"show you exactly how this would work for your team?"

var endTexts = map[string]string{
	"USER_ENDED": "Totally understand. Thanks for taking the time to chat — " +
		"I really appreciate it. Have a great rest of your day!",
	"TURN_LIMIT_REACHED": "I know I've taken a lot of your time, so I'll let you go. " +
		"Thanks for the conversation — I'll follow up with a summary. Have a great day!",
	"ALL_SLOTS_FILLED": "I appreciate you sharing all of that. It sounds like the timing " +
		"might not be right just now, but I'd love to stay in touch. " +
		"I'll send over some info — thanks for your time!",
	"SCORE_TOO_LOW": "I appreciate your honesty. It sounds like this might not be the best " +
		"fit right now, and that's totally okay. I'll send some info in case " +
		"anything changes down the road. Thanks for your time!",
	"CALLBACK_REQUESTED": "Of course — I'll call you back then. " +
		"Thanks for letting me know, and have a great rest of your day!",
	"SILENCE_TIMEOUT": "It seems like we've lost you — no worries at all! " +
		"I'll follow up with an email. Thanks for your time!",
}

const endDefault = "Thanks so much for the conversation. I'll follow up with a summary " +
	"and next steps. Have a great day!"

// templateText renders the deterministic reply for an action.
func templateText(action call.Action, sig call.Signals) string {
	switch action.Type {
	case call.ActionAskSlot:
		if q, ok := slotQuestions[action.Slot]; ok {
			return q
		}
		return "Can you tell me more about your " + string(action.Slot) + "?"

	case call.ActionHandleObjection:
		if r, ok := objectionResponses[sig.ObjectionType]; ok {
			return r
		}
		return "I understand your concern. Could you help me understand " +
			"a bit more about what's holding you back?"

	case call.ActionClose:
		return closeText

	case call.ActionEnd:
		for _, reason := range action.ReasonCodes {
			if text, ok := endTexts[reason]; ok {
				return text
			}
		}
		return endDefault
	}
	return endDefault
}

// Scripted fallback prospect lines, indexed by turn count, for AI-prospect
// mode when the provider is unavailable.
var scriptedProspect = []string{
	"Yeah sure, I have a minute. What's this about?",
	"We're about 50 people. Outbound is mostly manual right now, lots of spreadsheets.",
	"I handle the sales tools decisions, yeah.",
	"Honestly, we've looked at a few things but nothing stuck. Budget is there if it makes sense.",
	"Probably this quarter if the fit is right.",
	"Sure, I'd be open to a demo.",
}
