package intake

import (
	"strconv"
	"strings"

	"github.com/vitalsort/triage/pkg/common/models"
)

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func normalize(s string) string {
	return strings.TrimSpace(accentReplacer.Replace(strings.ToLower(s)))
}

func isConsentGiven(text string) bool {
	t := normalize(text)
	for _, yes := range []string{"autorizo", "acepto", "si", "sí", "de acuerdo", "ok", "yes"} {
		if t == normalize(yes) || strings.HasPrefix(t, normalize(yes)+" ") {
			return true
		}
	}
	return false
}

func isConsentDeclined(text string) bool {
	t := normalize(text)
	for _, no := range []string{"no autorizo", "no acepto", "no", "rechazo"} {
		if t == no || strings.HasPrefix(t, no+" ") {
			return true
		}
	}
	return false
}

// parseGender maps free text or chip input onto the closed gender set.
// Anything unrecognized, including a refusal, becomes nil and the flow
// advances regardless.
func parseGender(text string) *models.Gender {
	t := normalize(text)
	var g models.Gender
	switch {
	case t == "m" || strings.Contains(t, "masculino") || strings.Contains(t, "hombre") || strings.Contains(t, "varon"):
		g = models.GenderMale
	case t == "f" || strings.Contains(t, "femenino") || strings.Contains(t, "mujer"):
		g = models.GenderFemale
	case strings.Contains(t, "otro") || strings.Contains(t, "no binario"):
		g = models.GenderOther
	default:
		return nil
	}
	return &g
}

// parseAgeGroup maps chip input, age words, or a plain number onto the
// age group set, nil when the patient declines or the input is noise.
func parseAgeGroup(text string) *models.AgeGroup {
	t := normalize(text)
	var a models.AgeGroup
	switch {
	case strings.Contains(t, "menor de 18") || strings.Contains(t, "nino") || strings.Contains(t, "bebe") || strings.Contains(t, "pediatric"):
		a = models.AgePediatric
	case strings.Contains(t, "65 o mas") || strings.Contains(t, "adulto mayor") || strings.Contains(t, "tercera edad") || strings.Contains(t, "geriatric"):
		a = models.AgeGeriatric
	case strings.Contains(t, "entre 18") || t == "adulto" || strings.Contains(t, "adulto joven"):
		a = models.AgeAdult
	default:
		if years, err := strconv.Atoi(t); err == nil {
			switch {
			case years < 0 || years > 130:
				return nil
			case years < 18:
				a = models.AgePediatric
			case years >= 65:
				a = models.AgeGeriatric
			default:
				a = models.AgeAdult
			}
			return &a
		}
		return nil
	}
	return &a
}
