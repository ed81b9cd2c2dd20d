package redact

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	Placeholder string `yaml:"placeholder" json:"placeholder"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no redaction rules configured")
	}

	return cfg, nil
}

// DefaultRules covers the identifiers patients most often type into a
// symptom description: national ID numbers, emails, and phone numbers.
// Every match is replaced with a fixed placeholder token.
func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Name: "NationalID", Type: "national_id", Pattern: `\b\d{1,2}[.]?\d{3}[.]?\d{3}-?[\dkK]\b`, Placeholder: "[ID]", Enabled: true},
		{Name: "Email", Type: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Placeholder: "[EMAIL]", Enabled: true},
		{Name: "PhoneIntl", Type: "phone", Pattern: `\+\d{1,3}[\s-]?\d{1,2}[\s-]?\d{4}[\s-]?\d{4}\b`, Placeholder: "[PHONE]", Enabled: true},
		{Name: "PhoneLocal", Type: "phone", Pattern: `\b9\s?\d{4}\s?\d{4}\b|\b\d{3}[-\s]\d{3}[-\s]\d{4}\b`, Placeholder: "[PHONE]", Enabled: true},
	}}
}
