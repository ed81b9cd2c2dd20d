// Package anoncode generates the human-speakable patient handles printed
// on intake receipts and read aloud at the desk. The alphabet drops the
// characters patients misread over the phone: I, L, O, 0, and 1.
package anoncode

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	letters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	digits  = "23456789"
)

var codePattern = regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ]{3}-[23456789]{3}$`)

// Generate returns a fresh code in the form LLL-DDD.
func Generate() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, 7)
	for i := 0; i < 3; i++ {
		code[i] = letters[int(buf[i])%len(letters)]
	}
	code[3] = '-'
	for i := 0; i < 3; i++ {
		code[4+i] = digits[int(buf[3+i])%len(digits)]
	}
	return string(code), nil
}

// Valid reports whether code round-trips against the exact handle format.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}
