package anoncode

import (
	"strings"
	"testing"
)

func TestGenerateMatchesFormat(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Valid(code) {
			t.Fatalf("generated code %q does not match format", code)
		}
		if strings.ContainsAny(code, "ILO01") {
			t.Fatalf("generated code %q contains ambiguous character", code)
		}
	}
}

func TestValidRejectsMalformedCodes(t *testing.T) {
	bad := []string{
		"",
		"ABC123",
		"AB-2345",
		"ABC-123", // contains 1
		"AIO-234", // contains I and O
		"abc-234",
		"ABC-2345",
		"ABCD-234",
	}
	for _, code := range bad {
		if Valid(code) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}

func TestValidAcceptsCanonicalCode(t *testing.T) {
	if !Valid("XQZ-789") {
		t.Fatal("expected XQZ-789 to be valid")
	}
}
