package redact

import (
	"strings"
	"testing"
)

func TestRedactorReplacesIdentifiers(t *testing.T) {
	redactor, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	text := "Soy 12.345.678-9, mi correo es ana@example.com y mi fono +56 9 8765 4321"
	masked := redactor.Redact(text)

	if strings.Contains(masked, "12.345.678-9") {
		t.Fatalf("national id survived redaction: %q", masked)
	}
	if strings.Contains(masked, "ana@example.com") {
		t.Fatalf("email survived redaction: %q", masked)
	}
	if strings.Contains(masked, "8765") {
		t.Fatalf("phone survived redaction: %q", masked)
	}
	for _, placeholder := range []string{"[ID]", "[EMAIL]", "[PHONE]"} {
		if !strings.Contains(masked, placeholder) {
			t.Fatalf("expected placeholder %s in %q", placeholder, masked)
		}
	}
}

func TestRedactorIsIdempotent(t *testing.T) {
	redactor, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	once := redactor.Redact("llamar al 555-123-4567 urgente")
	twice := redactor.Redact(once)
	if once != twice {
		t.Fatalf("redaction not idempotent: %q vs %q", once, twice)
	}
}

func TestRedactorLeavesSymptomsAlone(t *testing.T) {
	redactor, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	text := "dolor de pecho opresivo desde hace 2 horas"
	if got := redactor.Redact(text); got != text {
		t.Fatalf("clinical text altered: %q", got)
	}
}

func TestDetectReportsPositions(t *testing.T) {
	redactor, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	matches := redactor.Detect("contacto: juan@example.org")
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].Type != "email" {
		t.Fatalf("expected email match, got %s", matches[0].Type)
	}
}
