// Package llm backs the classification contract with an OpenAI-compatible
// chat-completions API. Every answer is checked against the deterministic
// red-flag scan before it is returned: a true emergency is never allowed
// to leave this package under-triaged.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/triage"
	"github.com/vitalsort/triage/pkg/triage/rules"
)

type Classifier struct {
	apiKey    string
	baseURL   string
	modelName string
	client    *http.Client
	guard     *rules.Engine
}

func New(apiKey, baseURL, modelName string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Classifier{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		client:    &http.Client{Timeout: timeout},
		guard:     rules.New(),
	}
}

func (c *Classifier) Classify(ctx context.Context, in triage.Input) (triage.Result, error) {
	content, err := c.callLLM(ctx, in)
	if err != nil {
		return triage.Result{}, err
	}

	result, err := parseResult(content)
	if err != nil {
		return triage.Result{}, fmt.Errorf("unparseable classifier response: %w", err)
	}
	if err := result.Validate(); err != nil {
		return triage.Result{}, fmt.Errorf("invalid classifier response: %w", err)
	}

	return c.clamp(in, result), nil
}

// clamp enforces the red-flag short-circuit on model output: when the
// deterministic scan finds a life threat in the patient's own words, any
// needs_info answer or level above 2 is replaced by the scan's result.
func (c *Classifier) clamp(in triage.Input, result triage.Result) triage.Result {
	urgent, ok := c.guard.ScanRedFlags(in)
	if !ok {
		return result
	}
	if result.Kind == triage.KindCompleted && result.Completed.ESILevel <= urgent.Completed.ESILevel {
		return result
	}
	logger.Log.WithFields(map[string]interface{}{
		"model_kind":  result.Kind,
		"guard_level": urgent.Completed.ESILevel,
	}).Warn("Classifier answer overridden by red-flag guard")
	return urgent
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Classifier) callLLM(ctx context.Context, in triage.Input) (string, error) {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	if in.Gender != nil || in.AgeGroup != nil {
		messages = append(messages, chatMessage{Role: "system", Content: demographicNote(in)})
	}
	for _, turn := range in.History {
		role := "user"
		if turn.Speaker == models.SpeakerAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: in.Utterance})

	payload := map[string]interface{}{
		"model":       c.modelName,
		"messages":    messages,
		"temperature": 0.1,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier API returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response from classifier API")
	}
	return parsed.Choices[0].Message.Content, nil
}

func demographicNote(in triage.Input) string {
	var parts []string
	if in.Gender != nil {
		parts = append(parts, fmt.Sprintf("género declarado: %s", *in.Gender))
	}
	if in.AgeGroup != nil {
		parts = append(parts, fmt.Sprintf("grupo etario: %s", *in.AgeGroup))
	}
	return "Contexto del paciente: " + strings.Join(parts, ", ")
}

// wireResult is the model's JSON answer shape.
type wireResult struct {
	Status             string   `json:"status"`
	Question           string   `json:"question"`
	Reason             string   `json:"reason"`
	Options            []string `json:"options"`
	ESILevel           int      `json:"esi_level"`
	CriticalSigns      []string `json:"critical_signs"`
	Reasoning          string   `json:"reasoning"`
	SuggestedSpecialty string   `json:"suggested_specialty"`
}

func parseResult(content string) (triage.Result, error) {
	// Models occasionally wrap the object in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var wire wireResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &wire); err != nil {
		return triage.Result{}, err
	}

	switch wire.Status {
	case string(triage.KindNeedsInfo):
		return triage.NeedInfo(wire.Question, wire.Reason, wire.Options...), nil
	case string(triage.KindCompleted):
		return triage.Complete(wire.ESILevel, wire.CriticalSigns, wire.Reasoning, wire.SuggestedSpecialty), nil
	default:
		return triage.Result{}, fmt.Errorf("unknown status %q", wire.Status)
	}
}
