// Package rules implements the triage decision policy as a deterministic
// engine. It is the fallback backend when no LLM is configured and the
// safety guardrail applied to every LLM answer.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/triage"
)

type Engine struct {
	questionIndex map[string]questionRef
}

type questionRef struct {
	item checkItem
	sym  symptom
}

func New() *Engine {
	idx := make(map[string]questionRef)
	for _, sym := range symptoms {
		for _, item := range sym.checklist {
			idx[item.question] = questionRef{item: item, sym: sym}
		}
	}
	return &Engine{questionIndex: idx}
}

func (e *Engine) Classify(ctx context.Context, in triage.Input) (triage.Result, error) {
	if err := ctx.Err(); err != nil {
		return triage.Result{}, err
	}

	utterance := normalize(in.Utterance)
	text := patientText(in)

	// Red flags end the conversation immediately. No clarifying question
	// is ever asked once a life threat is confirmed.
	if res, ok := e.ScanRedFlags(in); ok {
		return res, nil
	}

	// A pending checklist question interprets the answer first: a denial
	// clears the item, an affirmation escalates to the item's level. Any
	// other answer flows through symptom matching below.
	if ref, ok := e.pendingQuestion(in.History); ok {
		switch {
		case isNegative(utterance):
			// Cleared; the next unaddressed item is asked further down.
		case ref.item.level >= 1 && ref.item.level <= 2 && isAffirmative(utterance):
			return completeUrgent(ref.item.level, []string{ref.item.sign}, ref.sym.specialty), nil
		}
	}

	matched := matchSymptoms(text)

	// Vagueness gate: never guess a level from input with no physical or
	// temporal content.
	if len(matched) == 0 {
		if !hasPhysicalContent(text) {
			return triage.NeedInfo(
				"¿Puede contarme qué molestia física siente y desde cuándo?",
				"el relato no contiene síntomas físicos ni referencias temporales",
			), nil
		}
		return triage.NeedInfo(
			"¿En qué parte del cuerpo siente la molestia y desde cuándo comenzó?",
			"síntoma no reconocido en el relato",
		), nil
	}

	// Ask the single highest-priority unaddressed checklist item.
	for _, sym := range matched {
		for _, item := range sym.checklist {
			if matchesAny(text, item.patterns) {
				// Already described by the patient. Escalating matches were
				// handled by the red-flag scan, so this item is resolved.
				continue
			}
			if e.asked(in.History, item.question) {
				continue
			}
			return triage.NeedInfo(
				item.question,
				fmt.Sprintf("descarte de riesgo vital pendiente para %s", sym.name),
				item.options...,
			), nil
		}
	}

	return e.classifyStable(matched, text, in), nil
}

// ScanRedFlags reports whether the patient's words already carry a
// life-threatening sign, and if so the mandatory ESI 1-2 classification.
// It is exported so the LLM backend can clamp under-triaged answers.
func (e *Engine) ScanRedFlags(in triage.Input) (triage.Result, bool) {
	text := patientText(in)

	level := 0
	var signs []string
	specialty := ""

	for _, rf := range redFlags {
		if !matchesAny(text, rf.patterns) {
			continue
		}
		signs = append(signs, rf.sign)
		if level == 0 || rf.level < level {
			level = rf.level
			specialty = rf.specialty
		}
	}

	for _, sym := range matchSymptoms(text) {
		for _, item := range sym.checklist {
			if item.level < 1 || item.level > 2 {
				continue
			}
			if !matchesAny(text, item.patterns) {
				continue
			}
			signs = append(signs, item.sign)
			if level == 0 || item.level < level {
				level = item.level
				specialty = sym.specialty
			}
		}
	}

	if level == 0 {
		return triage.Result{}, false
	}
	return completeUrgent(level, dedupe(signs), specialty), true
}

func (e *Engine) classifyStable(matched []symptom, text string, in triage.Input) triage.Result {
	resources := 0
	seen := make(map[string]struct{})
	for _, sym := range matched {
		if _, ok := seen[sym.name]; ok {
			continue
		}
		seen[sym.name] = struct{}{}
		resources += sym.resources
	}

	// Boundary ambiguity resolves toward urgency: a severity qualifier
	// counts as one extra anticipated resource.
	if matchesAny(text, severityQualifiers) {
		resources++
	}

	// Age extremes raise the expected workup for fever and abdominal pain.
	if in.AgeGroup != nil && (*in.AgeGroup == models.AgePediatric || *in.AgeGroup == models.AgeGeriatric) {
		for _, sym := range matched {
			if sym.name == "fever" || sym.name == "abdominal_pain" {
				resources++
				break
			}
		}
	}

	level := 5
	switch {
	case resources >= 2:
		level = 3
	case resources == 1:
		level = 4
	}

	reasoning := fmt.Sprintf(
		"Sin signos de alarma en el relato tras descarte dirigido; complejidad estimada de %d recursos diagnósticos o terapéuticos.",
		resources,
	)
	return triage.Complete(level, nil, reasoning, matched[0].specialty)
}

func completeUrgent(level int, signs []string, specialty string) triage.Result {
	return triage.Complete(
		level,
		signs,
		fmt.Sprintf("Signos de riesgo vital identificados en el relato: %s. Atención inmediata según protocolo.", strings.Join(signs, ", ")),
		specialty,
	)
}

func (e *Engine) pendingQuestion(history []models.ConversationTurn) (questionRef, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Speaker != models.SpeakerAssistant {
			continue
		}
		ref, ok := e.questionIndex[history[i].Text]
		return ref, ok
	}
	return questionRef{}, false
}

func (e *Engine) asked(history []models.ConversationTurn, question string) bool {
	for _, turn := range history {
		if turn.Speaker == models.SpeakerAssistant && turn.Text == question {
			return true
		}
	}
	return false
}

func matchSymptoms(text string) []symptom {
	var matched []symptom
	for _, sym := range symptoms {
		if matchesAny(text, sym.patterns) {
			matched = append(matched, sym)
		}
	}
	return matched
}

func hasPhysicalContent(text string) bool {
	return matchesAny(text, physicalMarkers) || matchesAny(text, temporalMarkers)
}

func isAffirmative(utterance string) bool {
	return answerMatches(utterance, affirmativeAnswers)
}

func isNegative(utterance string) bool {
	return answerMatches(utterance, negativeAnswers)
}

func answerMatches(utterance string, answers []string) bool {
	trimmed := strings.TrimSpace(strings.Trim(utterance, ".,!¡"))
	for _, answer := range answers {
		if trimmed == normalize(answer) || strings.HasPrefix(trimmed, normalize(answer)+" ") {
			return true
		}
	}
	return false
}

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// patientText concatenates the normalized patient side of the exchange:
// prior patient turns plus the current utterance.
func patientText(in triage.Input) string {
	var b strings.Builder
	for _, turn := range in.History {
		if turn.Speaker != models.SpeakerPatient {
			continue
		}
		b.WriteString(normalize(turn.Text))
		b.WriteString(" ")
	}
	b.WriteString(normalize(in.Utterance))
	return b.String()
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(s))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
