package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"roister/agent/internal/call"
)

// Client talks to an OpenAI-compatible chat-completions endpoint
// (DeepSeek-style). It implements Extractor, Wording, and Prospect.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	model   string
	retries int
}

// NewClient builds a client for the given endpoint. timeout bounds each
// attempt; retries is the number of re-attempts after the first try.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, retries int) *Client {
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		retries: retries,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatJSON sends a completion request and unmarshals the JSON content of
// the first choice into out. Retries on transport errors, empty content,
// and malformed JSON.
func (c *Client) chatJSON(ctx context.Context, messages []chatMessage, maxTokens int, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	req := chatRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens}
	req.ResponseFormat.Type = "json_object"
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := c.doChat(ctx, body)
		if err != nil {
			lastErr = err
			log.Printf("[provider] chat attempt %d/%d: %v", attempt+1, c.retries+1, err)
			continue
		}
		if err := json.Unmarshal([]byte(content), out); err != nil {
			lastErr = fmt.Errorf("parse completion JSON: %w", err)
			log.Printf("[provider] chat attempt %d/%d: %v", attempt+1, c.retries+1, lastErr)
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) doChat(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat completion: %s: %s", resp.Status, string(b))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyContent
	}
	return parsed.Choices[0].Message.Content, nil
}

const extractSystem = `You are a signal extractor for a B2B sales cold-call. Output only valid json.

Extract from the user's latest message:
{"intent":"answer|objection|end|off_topic","company_size":null,"pain":null,"budget":null,"authority":null,"timeline":null,"objection_type":null,"answered_slot":null,"is_correction":false,"confidence":0.5}

Field rules:
- intent: "answer" (sharing info), "objection" (pushback), "end" (goodbye/hangup), "off_topic"
- company_size: integer employee count or null
- pain: 0-10 severity or null (10 = extreme)
- budget: true (available), false (rejected/none), null (unknown)
- authority: true (decision-maker), false (not), null (unknown)
- timeline: short string ("this quarter","Q2","asap") or null
- objection_type: "not_interested"|"already_have_tool"|"too_expensive"|"send_email"|"busy"|"other" or null
- answered_slot: which asked-about field this message answers, or null
- is_correction: true when the user is overriding something they said earlier
- confidence: 0.0-1.0 overall extraction confidence`

// Extract asks the model for structured signals. Any failure (transport,
// empty, malformed) is returned as an error for the caller to handle.
func (c *Client) Extract(ctx context.Context, userText string, state *call.ProspectState) (call.Signals, error) {
	callCtx := fmt.Sprintf("Stage: %s, Turn: %d", state.Stage, state.TurnCount)
	if known := knownFields(state); known != "" {
		callCtx += ", Known: " + known
	}
	if state.LastAskedSlot != "" {
		callCtx += fmt.Sprintf(", Last asked: %s", state.LastAskedSlot)
	}

	messages := []chatMessage{
		{Role: "system", Content: extractSystem},
		{Role: "user", Content: fmt.Sprintf("Context: %s\nUser said: %q", callCtx, userText)},
	}

	var sig call.Signals
	sig.Intent = call.IntentAnswer
	sig.Confidence = 0.5
	if err := c.chatJSON(ctx, messages, 200, &sig); err != nil {
		return call.Signals{}, err
	}
	return sig, nil
}

const wordingSystem = `You are Alex, a friendly SDR at Roister (outbound sales platform). Output json: {"response":"your reply here"}

Write ONE reply: 1-2 sentences, at most 1 question. Sound natural and conversational.

Rules by action type:
- ASK_SLOT: briefly acknowledge what they said, then ask about that ONE topic
- HANDLE_OBJECTION: acknowledge the concern, then ask one redirect question
- CLOSE: propose a demo or meeting, ask to confirm
- END: polite goodbye, no extra questions

CRITICAL: If you see a "PREVIOUS reply" in context, your new reply MUST be completely different wording. Never repeat or paraphrase your last reply. Vary your opening, phrasing, and question.

Never invent company details you don't know. No markdown. No bullet points.`

// Generate asks the model to word the chosen action.
func (c *Client) Generate(ctx context.Context, action call.Action, state *call.ProspectState, sig call.Signals) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s", action.Type)
	if action.Slot != "" {
		fmt.Fprintf(&b, " (slot: %s)", action.Slot)
	}
	fmt.Fprintf(&b, "\nGoal: %s", action.MessageGoal)
	fmt.Fprintf(&b, "\nStage: %s, Turn: %d", state.Stage, state.TurnCount)
	if known := knownFields(state); known != "" {
		fmt.Fprintf(&b, "\nKnown: %s", known)
	}
	if sig.ObjectionType != "" {
		fmt.Fprintf(&b, "\nObjection raised: %s", sig.ObjectionType)
	}
	if state.LastAgentText != "" {
		fmt.Fprintf(&b, "\nPREVIOUS reply: %q", state.LastAgentText)
	}
	if state.LastUserText != "" {
		fmt.Fprintf(&b, "\nUser just said: %q", state.LastUserText)
	}

	messages := []chatMessage{
		{Role: "system", Content: wordingSystem},
		{Role: "user", Content: b.String()},
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := c.chatJSON(ctx, messages, 256, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyContent
	}
	return out.Response, nil
}

const prospectSystem = `You are role-playing a B2B prospect receiving a cold call. Output json: {"response":"your reply here"}

Reply with ONE short, realistic utterance (1-2 sentences) reacting to the salesperson's last message. Stay consistent with anything you already told them. Occasionally push back or mention constraints, like a real busy professional.`

// ProspectTurn generates a simulated prospect utterance for AI-prospect mode.
func (c *Client) ProspectTurn(ctx context.Context, state *call.ProspectState) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage: %s, Turn: %d", state.Stage, state.TurnCount)
	if known := knownFields(state); known != "" {
		fmt.Fprintf(&b, "\nAlready told the salesperson: %s", known)
	}
	if state.LastAgentText != "" {
		fmt.Fprintf(&b, "\nSalesperson just said: %q", state.LastAgentText)
	}

	messages := []chatMessage{
		{Role: "system", Content: prospectSystem},
		{Role: "user", Content: b.String()},
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := c.chatJSON(ctx, messages, 128, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyContent
	}
	return out.Response, nil
}

// knownFields renders the filled slots as compact JSON for prompt context.
func knownFields(state *call.ProspectState) string {
	known := map[string]any{}
	if v := state.Learned.Pain; v != nil {
		known["pain"] = *v
	}
	if v := state.Learned.CompanySize; v != nil {
		known["company_size"] = *v
	}
	if v := state.Learned.Authority; v != nil {
		known["authority"] = *v
	}
	if v := state.Learned.Budget; v != nil {
		known["budget"] = *v
	}
	if v := state.Learned.Timeline; v != nil {
		known["timeline"] = *v
	}
	if len(known) == 0 {
		return ""
	}
	b, _ := json.Marshal(known)
	return string(b)
}
