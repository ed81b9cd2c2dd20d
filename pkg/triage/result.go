// Package triage defines the classification contract: the request and
// tagged response shapes every classifier backend must honor, whether it
// is the deterministic rule engine or the LLM client.
package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitalsort/triage/pkg/common/models"
)

const (
	// MaxOptions caps quick-reply chips offered with a clarifying question.
	MaxOptions = 5
	// MinReasoningLength is the floor for a completed classification's
	// free-text justification.
	MinReasoningLength = 20
)

type Kind string

const (
	KindNeedsInfo Kind = "needs_info"
	KindCompleted Kind = "completed"
)

// NeedsInfo asks the patient exactly one clarifying question.
type NeedsInfo struct {
	Question string   `json:"question"`
	Reason   string   `json:"reason"`
	Options  []string `json:"options,omitempty"`
}

// Completed commits to an ESI level.
type Completed struct {
	ESILevel           int      `json:"esi_level"`
	CriticalSigns      []string `json:"critical_signs"`
	Reasoning          string   `json:"reasoning"`
	SuggestedSpecialty string   `json:"suggested_specialty"`
}

// Result is the discriminated union returned per turn. Exactly one of
// NeedsInfo/Completed is set, selected by Kind.
type Result struct {
	Kind      Kind       `json:"kind"`
	NeedsInfo *NeedsInfo `json:"needs_info,omitempty"`
	Completed *Completed `json:"completed,omitempty"`
}

func NeedInfo(question, reason string, options ...string) Result {
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}
	return Result{
		Kind:      KindNeedsInfo,
		NeedsInfo: &NeedsInfo{Question: question, Reason: reason, Options: options},
	}
}

func Complete(level int, signs []string, reasoning, specialty string) Result {
	return Result{
		Kind: KindCompleted,
		Completed: &Completed{
			ESILevel:           level,
			CriticalSigns:      signs,
			Reasoning:          reasoning,
			SuggestedSpecialty: specialty,
		},
	}
}

func (r Result) Validate() error {
	switch r.Kind {
	case KindNeedsInfo:
		if r.NeedsInfo == nil || r.Completed != nil {
			return errors.New("needs_info result must carry exactly the needs_info payload")
		}
		if r.NeedsInfo.Question == "" {
			return errors.New("clarifying question must not be empty")
		}
		if len(r.NeedsInfo.Options) > MaxOptions {
			return fmt.Errorf("at most %d quick-reply options allowed", MaxOptions)
		}
		return nil
	case KindCompleted:
		if r.Completed == nil || r.NeedsInfo != nil {
			return errors.New("completed result must carry exactly the completed payload")
		}
		if r.Completed.ESILevel < 1 || r.Completed.ESILevel > 5 {
			return fmt.Errorf("esi_level %d out of range [1,5]", r.Completed.ESILevel)
		}
		if len(r.Completed.Reasoning) < MinReasoningLength {
			return fmt.Errorf("reasoning must be at least %d characters", MinReasoningLength)
		}
		return nil
	default:
		return fmt.Errorf("unknown result kind %q", r.Kind)
	}
}

// Input is what a classifier sees for one turn: the sanitized current
// utterance plus a bounded window of prior turns. Free text must already
// be redacted by the caller.
type Input struct {
	Utterance string
	History   []models.ConversationTurn
	Gender    *models.Gender
	AgeGroup  *models.AgeGroup
}

// Classifier is the contract surface. Implementations must uphold the
// clinical policy: never classify vague input, ask one question per turn,
// short-circuit on red flags, and resolve level ties toward urgency.
type Classifier interface {
	Classify(ctx context.Context, in Input) (Result, error)
}
