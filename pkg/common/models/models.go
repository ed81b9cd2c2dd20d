package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation turns

type Speaker string

const (
	SpeakerPatient   Speaker = "patient"
	SpeakerAssistant Speaker = "assistant"
)

type ConversationTurn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Demographics. Both fields are optional: a patient may decline to answer
// and the flow advances regardless.

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "other"
)

type AgeGroup string

const (
	AgePediatric AgeGroup = "pediatric"
	AgeAdult     AgeGroup = "adult"
	AgeGeriatric AgeGroup = "geriatric"
)

// AIResult is the classifier's completed output. Written exactly once at
// intake completion, immutable afterwards.
type AIResult struct {
	ESILevel           int       `json:"esi_level"`
	CriticalSigns      []string  `json:"critical_signs"`
	Reasoning          string    `json:"reasoning"`
	SuggestedSpecialty string    `json:"suggested_specialty"`
	Model              string    `json:"model,omitempty"`
	ClassifiedAt       time.Time `json:"classified_at"`
}

// Record lifecycle

type RecordStatus string

const (
	StatusPendingAI            RecordStatus = "pending_ai"
	StatusPendingNurseBlind    RecordStatus = "pending_nurse_blind"
	StatusRevealedPendingFinal RecordStatus = "revealed_pending_final"
	StatusValidated            RecordStatus = "validated"
)

type ClinicalRecord struct {
	ID                 uuid.UUID          `json:"id"`
	AnonymousCode      string             `json:"anonymous_code"`
	SymptomsText       string             `json:"symptoms_text"`
	Conversation       []ConversationTurn `json:"conversation_history"`
	Gender             *Gender            `json:"gender,omitempty"`
	AgeGroup           *AgeGroup          `json:"age_group,omitempty"`
	AI                 *AIResult          `json:"ai_response,omitempty"`
	NurseESILevel      *int               `json:"nurse_esi_level,omitempty"`
	NurseOverrideLevel *int               `json:"nurse_override_level,omitempty"`
	FeedbackText       string             `json:"feedback_text,omitempty"`
	Validated          bool               `json:"validated"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Status derives the workflow state from the record fields.
func (r ClinicalRecord) Status() RecordStatus {
	switch {
	case r.Validated:
		return StatusValidated
	case r.NurseESILevel != nil:
		return StatusRevealedPendingFinal
	case r.AI == nil:
		return StatusPendingAI
	default:
		return StatusPendingNurseBlind
	}
}

// FinalESILevel is the authoritative clinical decision: the nurse's
// override if present, otherwise the nurse's blind level, otherwise the
// AI suggestion.
func (r ClinicalRecord) FinalESILevel() *int {
	if r.NurseOverrideLevel != nil {
		return r.NurseOverrideLevel
	}
	if r.NurseESILevel != nil {
		return r.NurseESILevel
	}
	if r.AI != nil {
		level := r.AI.ESILevel
		return &level
	}
	return nil
}

// IntakeOutcome is what the intake flow hands to the record store when a
// conversation completes. AI is nil when the classifier was unavailable.
type IntakeOutcome struct {
	SymptomsText string
	Conversation []ConversationTurn
	Gender       *Gender
	AgeGroup     *AgeGroup
	AI           *AIResult
}

// Nurse workflow API payloads

// PendingRecord is the sealed worklist view: the AI payload never appears
// here, so a blind classification cannot be contaminated server-side.
type PendingRecord struct {
	ID            uuid.UUID          `json:"id"`
	AnonymousCode string             `json:"anonymous_code"`
	SymptomsText  string             `json:"symptoms_text"`
	Conversation  []ConversationTurn `json:"conversation_history"`
	Gender        *Gender            `json:"gender,omitempty"`
	AgeGroup      *AgeGroup          `json:"age_group,omitempty"`
	Status        RecordStatus       `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}

type BlindClassificationRequest struct {
	ESILevel int `json:"esi_level"`
}

type ValidationRequest struct {
	FinalESILevel int    `json:"final_esi_level"`
	FeedbackText  string `json:"feedback_text,omitempty"`
}

// RevealView is returned once the blind write has landed: both levels side
// by side plus the match indicator.
type RevealView struct {
	ID            uuid.UUID `json:"id"`
	AnonymousCode string    `json:"anonymous_code"`
	NurseESILevel int       `json:"nurse_esi_level"`
	AI            *AIResult `json:"ai_response,omitempty"`
	Match         *bool     `json:"match,omitempty"`
}

type AgreementReport struct {
	Total     int     `json:"total"`
	Matches   int     `json:"matches"`
	Overrides int     `json:"overrides"`
	MatchRate float64 `json:"match_rate"`
}

// Intake API payloads

type StartSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Messages  []string  `json:"messages"`
	Options   []string  `json:"options,omitempty"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type ChatReply struct {
	SessionID     uuid.UUID  `json:"session_id"`
	Messages      []string   `json:"messages"`
	Options       []string   `json:"options,omitempty"`
	Completed     bool       `json:"completed"`
	Degraded      bool       `json:"degraded,omitempty"`
	RecordID      *uuid.UUID `json:"record_id,omitempty"`
	AnonymousCode string     `json:"anonymous_code,omitempty"`
}

// Staff / auth

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"` // nurse, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BootstrapRequest struct {
	AdminEmail    string `json:"admin_email"`
	AdminName     string `json:"admin_name"`
	AdminPassword string `json:"admin_password"`
}

type RegisterUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Event bus

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // record.created, record.validated, intake.degraded
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
