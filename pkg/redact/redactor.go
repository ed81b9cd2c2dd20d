// Package redact strips direct identifiers from free text before it
// crosses the boundary to the triage classifier.
package redact

import (
	"regexp"

	"github.com/vitalsort/triage/pkg/common/models"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

type Redactor struct {
	rules []compiledRule
}

func New(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Redact replaces every identifier match with its rule's placeholder.
func (r *Redactor) Redact(text string) string {
	if r == nil {
		return text
	}
	masked := text
	for _, rule := range r.rules {
		masked = rule.re.ReplaceAllString(masked, rule.rule.Placeholder)
	}
	return masked
}

// RedactTurns returns a copy of the conversation with every turn's text
// redacted. The original turns are left untouched so the persisted audit
// history keeps the patient's exact words.
func (r *Redactor) RedactTurns(turns []models.ConversationTurn) []models.ConversationTurn {
	if r == nil || len(turns) == 0 {
		return turns
	}
	out := make([]models.ConversationTurn, len(turns))
	for i, turn := range turns {
		out[i] = turn
		out[i].Text = r.Redact(turn.Text)
	}
	return out
}

type Match struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
}

// Detect reports identifier positions without altering the text. Used for
// redaction-hit metrics.
func (r *Redactor) Detect(text string) []Match {
	if r == nil {
		return nil
	}
	var matches []Match
	for _, rule := range r.rules {
		for _, loc := range rule.re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{Start: loc[0], End: loc[1], Type: rule.rule.Type})
		}
	}
	return matches
}
