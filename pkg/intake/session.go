package intake

import (
	"time"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/common/models"
)

type State string

const (
	StateConsent   State = "consent"
	StateGender    State = "gender"
	StateAge       State = "age"
	StateSymptoms  State = "collecting_symptoms"
	StateCompleted State = "completed"
)

// Session is the per-conversation context object. Everything the state
// machine needs between turns lives here; there is no ambient state.
type Session struct {
	ID           uuid.UUID                 `json:"id"`
	State        State                     `json:"state"`
	Consent      bool                      `json:"consent"`
	Gender       *models.Gender            `json:"gender,omitempty"`
	AgeGroup     *models.AgeGroup          `json:"age_group,omitempty"`
	Turns        []models.ConversationTurn `json:"turns"`
	SymptomTexts []string                  `json:"symptom_texts"`
	PatientTurns int                       `json:"patient_turns"`
	SymptomStart int                       `json:"symptom_start"`
	Degraded     bool                      `json:"degraded"`
	RecordID     *uuid.UUID                `json:"record_id,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.New(),
		State:     StateConsent,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) appendTurn(speaker models.Speaker, text string) {
	s.Turns = append(s.Turns, models.ConversationTurn{
		Speaker: speaker,
		Text:    text,
		At:      time.Now().UTC(),
	})
}

// recentTurns returns the last n symptom-phase exchanges, the bounded
// window replayed to the classifier. Consent and demographic turns are
// never replayed; the full history stays in the session for the
// persisted audit record.
func (s *Session) recentTurns(exchanges int) []models.ConversationTurn {
	turns := s.Turns
	if s.SymptomStart > 0 && s.SymptomStart <= len(turns) {
		turns = turns[s.SymptomStart:]
	}
	limit := exchanges * 2
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
