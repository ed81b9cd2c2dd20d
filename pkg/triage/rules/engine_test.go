package rules

import (
	"context"
	"testing"
	"time"

	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/triage"
)

func classify(t *testing.T, in triage.Input) triage.Result {
	t.Helper()
	result, err := New().Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Fatalf("invalid result: %v", err)
	}
	return result
}

func turns(pairs ...[2]string) []models.ConversationTurn {
	var history []models.ConversationTurn
	for _, pair := range pairs {
		history = append(history, models.ConversationTurn{
			Speaker: models.Speaker(pair[0]),
			Text:    pair[1],
			At:      time.Now(),
		})
	}
	return history
}

// Inputs a clinical rubric rates ESI 1-2 must never classify at 4 or 5,
// and must not be answered with a clarifying question. A single failure
// here blocks release.
func TestEmergenciesAreNeverUnderTriaged(t *testing.T) {
	emergencies := []string{
		"Paciente no respira, piel azulada",
		"mi papá está inconsciente y no responde",
		"se cortó con una sierra y sangra a chorros, no deja de sangrar",
		"dolor de pecho opresivo irradiado al brazo, sudor frío",
		"he pensado en matarme y tengo pastillas en la mano",
		"mi bebé de dos meses de vida tiene fiebre alta y no reacciona",
		"de repente tiene la cara caída y no puede hablar",
		"está convulsionando ahora mismo",
		"se está ahogando, no puede respirar",
		"respira muy agitado, no puede hablar de corrido",
	}

	for _, text := range emergencies {
		result := classify(t, triage.Input{Utterance: text})
		if result.Kind != triage.KindCompleted {
			t.Fatalf("%q: expected completed, got %s", text, result.Kind)
		}
		if result.Completed.ESILevel > 2 {
			t.Fatalf("%q: under-triaged to ESI %d", text, result.Completed.ESILevel)
		}
		if len(result.Completed.CriticalSigns) == 0 {
			t.Fatalf("%q: expected critical signs", text)
		}
	}
}

func TestNotBreathingClassifiesAtLevelOne(t *testing.T) {
	result := classify(t, triage.Input{Utterance: "Paciente no respira, piel azulada"})
	if result.Kind != triage.KindCompleted || result.Completed.ESILevel != 1 {
		t.Fatalf("expected completed ESI 1, got %+v", result)
	}
}

func TestVagueInputAsksAQuestion(t *testing.T) {
	vague := []string{
		"ayuda",
		"me siento mal",
		"necesito que alguien me escuche",
		"todo esta mal",
	}
	for _, text := range vague {
		result := classify(t, triage.Input{Utterance: text})
		if result.Kind != triage.KindNeedsInfo {
			t.Fatalf("%q: expected needs_info, got %+v", text, result)
		}
		if result.NeedsInfo.Question == "" {
			t.Fatalf("%q: expected a clarifying question", text)
		}
	}
}

func TestEmotionalComplaintTriggersRiskScreen(t *testing.T) {
	result := classify(t, triage.Input{Utterance: "tengo pena"})
	if result.Kind != triage.KindNeedsInfo {
		t.Fatalf("expected needs_info, got %+v", result)
	}
}

func TestChecklistAsksOneQuestionPerTurn(t *testing.T) {
	first := classify(t, triage.Input{Utterance: "me duele el pecho"})
	if first.Kind != triage.KindNeedsInfo {
		t.Fatalf("expected needs_info, got %+v", first)
	}
	if len(first.NeedsInfo.Options) > triage.MaxOptions {
		t.Fatalf("too many options: %d", len(first.NeedsInfo.Options))
	}

	// Answering "no" moves on to the next unaddressed item, still one
	// question per turn.
	second := classify(t, triage.Input{
		Utterance: "no",
		History: turns(
			[2]string{"patient", "me duele el pecho"},
			[2]string{"assistant", first.NeedsInfo.Question},
		),
	})
	if second.Kind != triage.KindNeedsInfo {
		t.Fatalf("expected needs_info, got %+v", second)
	}
	if second.NeedsInfo.Question == first.NeedsInfo.Question {
		t.Fatal("expected a different checklist question on the next turn")
	}
}

func TestDenialVariantsNeverEscalate(t *testing.T) {
	first := classify(t, triage.Input{Utterance: "me duele el pecho"})
	if first.Kind != triage.KindNeedsInfo {
		t.Fatalf("expected needs_info, got %+v", first)
	}

	for _, denial := range []string{"no", "creo que no", "no tengo nada de eso", "ninguno"} {
		result := classify(t, triage.Input{
			Utterance: denial,
			History: turns(
				[2]string{"patient", "me duele el pecho"},
				[2]string{"assistant", first.NeedsInfo.Question},
			),
		})
		if result.Kind == triage.KindCompleted && result.Completed.ESILevel <= 2 {
			t.Fatalf("denial %q escalated to ESI %d", denial, result.Completed.ESILevel)
		}
	}
}

func TestAffirmativeRedFlagAnswerEscalates(t *testing.T) {
	first := classify(t, triage.Input{Utterance: "me duele el pecho"})
	result := classify(t, triage.Input{
		Utterance: "sí",
		History: turns(
			[2]string{"patient", "me duele el pecho"},
			[2]string{"assistant", first.NeedsInfo.Question},
		),
	})
	if result.Kind != triage.KindCompleted {
		t.Fatalf("expected completed, got %+v", result)
	}
	if result.Completed.ESILevel > 2 {
		t.Fatalf("expected ESI 1-2, got %d", result.Completed.ESILevel)
	}
}

func TestRedFlagShortCircuitSkipsChecklist(t *testing.T) {
	// A confirmed red flag must classify immediately even though the
	// symptom checklist still has unaddressed items.
	result := classify(t, triage.Input{Utterance: "me duele el pecho opresivo y me falta el aire"})
	if result.Kind != triage.KindCompleted {
		t.Fatalf("expected completed, got %+v", result)
	}
	if result.Completed.ESILevel > 2 {
		t.Fatalf("expected ESI 1-2, got %d", result.Completed.ESILevel)
	}
}

func limbPainHistory() []models.ConversationTurn {
	var questions []string
	for _, sym := range symptoms {
		if sym.name == "limb_pain" {
			for _, item := range sym.checklist {
				questions = append(questions, item.question)
			}
		}
	}
	history := turns([2]string{"patient", "me duele la pierna después de una caída"})
	for _, q := range questions {
		history = append(history,
			models.ConversationTurn{Speaker: models.SpeakerAssistant, Text: q},
			models.ConversationTurn{Speaker: models.SpeakerPatient, Text: "no"},
		)
	}
	return history
}

func TestStableLimbPainIsLevelFour(t *testing.T) {
	result := classify(t, triage.Input{
		Utterance: "me duele la pierna desde ayer, nada más",
		History:   limbPainHistory(),
	})
	if result.Kind != triage.KindCompleted || result.Completed.ESILevel != 4 {
		t.Fatalf("expected completed ESI 4, got %+v", result)
	}
}

func TestBoundaryResolvesToMoreUrgentLevel(t *testing.T) {
	// Same presentation with a severity qualifier sits on the 3/4
	// boundary; the policy picks the more urgent level.
	result := classify(t, triage.Input{
		Utterance: "el dolor es insoportable, no puedo caminar",
		History:   limbPainHistory(),
	})
	if result.Kind != triage.KindCompleted || result.Completed.ESILevel != 3 {
		t.Fatalf("expected completed ESI 3, got %+v", result)
	}
}

func TestZeroResourceComplaintIsLevelFive(t *testing.T) {
	result := classify(t, triage.Input{Utterance: "tengo un resfriado desde hace dos días"})
	if result.Kind != triage.KindCompleted || result.Completed.ESILevel != 5 {
		t.Fatalf("expected completed ESI 5, got %+v", result)
	}
}

func TestPediatricFeverCountsExtraResource(t *testing.T) {
	age := models.AgePediatric
	var history []models.ConversationTurn
	history = turns([2]string{"patient", "mi hijo tiene fiebre desde anoche"})
	for _, sym := range symptoms {
		if sym.name != "fever" {
			continue
		}
		for _, item := range sym.checklist {
			history = append(history,
				models.ConversationTurn{Speaker: models.SpeakerAssistant, Text: item.question},
				models.ConversationTurn{Speaker: models.SpeakerPatient, Text: "no"},
			)
		}
	}

	result := classify(t, triage.Input{
		Utterance: "sigue con fiebre, sin otras molestias",
		History:   history,
		AgeGroup:  &age,
	})
	if result.Kind != triage.KindCompleted || result.Completed.ESILevel != 3 {
		t.Fatalf("expected completed ESI 3, got %+v", result)
	}
}

func TestScanRedFlagsReportsCleanInput(t *testing.T) {
	if _, ok := New().ScanRedFlags(triage.Input{Utterance: "tengo un resfriado"}); ok {
		t.Fatal("expected no red flags for a cold")
	}
}
