// Package intake drives the turn-based patient conversation: consent,
// demographics, then symptom collection delegating to the classification
// contract until it completes or the safety turn cap fires.
package intake

import (
	"context"
	"strings"
	"time"

	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/observability/metrics"
	"github.com/vitalsort/triage/pkg/redact"
	"github.com/vitalsort/triage/pkg/triage"
)

// Recorder creates the clinical record once a conversation completes.
// Implemented by the record service.
type Recorder interface {
	CreateFromIntake(ctx context.Context, outcome models.IntakeOutcome) (models.ClinicalRecord, error)
}

type Options struct {
	MaxPatientTurns    int
	HistoryWindow      int
	MinUtteranceLength int
	MaxUtteranceLength int
	ClassifierTimeout  time.Duration
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.MaxPatientTurns <= 0 {
		opts.MaxPatientTurns = 15
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}
	if opts.MinUtteranceLength <= 0 {
		opts.MinUtteranceLength = 2
	}
	if opts.MaxUtteranceLength <= 0 {
		opts.MaxUtteranceLength = 2000
	}
	if opts.ClassifierTimeout <= 0 {
		opts.ClassifierTimeout = 20 * time.Second
	}
	return opts
}

type Machine struct {
	classifier triage.Classifier
	redactor   *redact.Redactor
	recorder   Recorder
	opts       Options
}

func NewMachine(classifier triage.Classifier, redactor *redact.Redactor, recorder Recorder, opts Options) *Machine {
	return &Machine{
		classifier: classifier,
		redactor:   redactor,
		recorder:   recorder,
		opts:       opts.withDefaults(),
	}
}

// Start opens a new conversation at the consent gate.
func (m *Machine) Start() (*Session, models.StartSessionResponse) {
	session := NewSession()
	session.appendTurn(models.SpeakerAssistant, msgWelcome)
	session.appendTurn(models.SpeakerAssistant, msgConsent)
	metrics.IncSessionsStarted()
	return session, models.StartSessionResponse{
		SessionID: session.ID,
		Messages:  []string{msgWelcome, msgConsent},
		Options:   consentOptions,
	}
}

// Advance feeds one patient utterance through the state machine.
func (m *Machine) Advance(ctx context.Context, session *Session, text string) (models.ChatReply, error) {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > m.opts.MaxUtteranceLength {
		text = string(runes[:m.opts.MaxUtteranceLength])
	}

	switch session.State {
	case StateConsent:
		return m.handleConsent(session, text), nil
	case StateGender:
		return m.handleGender(session, text), nil
	case StateAge:
		return m.handleAge(session, text), nil
	case StateSymptoms:
		return m.handleSymptoms(ctx, session, text)
	case StateCompleted:
		return m.reply(session, []string{msgSessionDone}, nil), nil
	default:
		session.State = StateConsent
		return m.reply(session, []string{msgConsentRepeat}, consentOptions), nil
	}
}

func (m *Machine) handleConsent(session *Session, text string) models.ChatReply {
	session.appendTurn(models.SpeakerPatient, text)
	switch {
	case isConsentGiven(text):
		session.Consent = true
		session.State = StateGender
		return m.say(session, []string{msgAskGender}, genderOptions)
	case isConsentDeclined(text):
		// Declining blocks progress but never ends the conversation; the
		// same choice is offered again.
		return m.say(session, []string{msgConsentDeclined}, consentOptions)
	default:
		return m.say(session, []string{msgConsentRepeat}, consentOptions)
	}
}

func (m *Machine) handleGender(session *Session, text string) models.ChatReply {
	session.appendTurn(models.SpeakerPatient, text)
	session.Gender = parseGender(text)
	session.State = StateAge
	return m.say(session, []string{msgAskAge}, ageOptions)
}

func (m *Machine) handleAge(session *Session, text string) models.ChatReply {
	session.appendTurn(models.SpeakerPatient, text)
	session.AgeGroup = parseAgeGroup(text)
	session.State = StateSymptoms
	reply := m.say(session, []string{msgAskSymptoms}, nil)
	session.SymptomStart = len(session.Turns)
	return reply
}

func (m *Machine) handleSymptoms(ctx context.Context, session *Session, text string) (models.ChatReply, error) {
	// Too-short input is re-prompted locally, it never reaches the
	// classifier and never fails the flow.
	if len([]rune(text)) < m.opts.MinUtteranceLength {
		return m.reply(session, []string{msgSymptomTooShort}, nil), nil
	}

	session.appendTurn(models.SpeakerPatient, text)
	session.SymptomTexts = append(session.SymptomTexts, text)
	session.PatientTurns++

	metrics.AddRedactionHits(len(m.redactor.Detect(text)))
	sanitized := m.redactor.Redact(text)
	window := m.redactor.RedactTurns(session.recentTurns(m.opts.HistoryWindow))
	// Drop the utterance just appended from the replayed window.
	if len(window) > 0 {
		window = window[:len(window)-1]
	}

	classifyCtx, cancel := context.WithTimeout(ctx, m.opts.ClassifierTimeout)
	defer cancel()

	metrics.IncClassifierCalls()
	result, err := m.classifier.Classify(classifyCtx, triage.Input{
		Utterance: sanitized,
		History:   window,
		Gender:    session.Gender,
		AgeGroup:  session.AgeGroup,
	})

	capped := session.PatientTurns >= m.opts.MaxPatientTurns

	switch {
	case err != nil:
		metrics.IncClassifierFailures()
		logger.Log.WithError(err).WithField("session_id", session.ID).Warn("Classifier unavailable, degrading intake")
		return m.complete(ctx, session, nil, true)
	case result.Kind == triage.KindNeedsInfo && !capped:
		session.appendTurn(models.SpeakerAssistant, result.NeedsInfo.Question)
		return m.reply(session, []string{result.NeedsInfo.Question}, result.NeedsInfo.Options), nil
	case result.Kind == triage.KindNeedsInfo && capped:
		// Safety bound: the conversation terminates after the turn cap no
		// matter what the contract wants; the patient is never left
		// unclassified in an endless loop.
		logger.Log.WithField("session_id", session.ID).Warn("Turn cap reached, forcing intake completion")
		return m.complete(ctx, session, nil, false)
	default:
		ai := &models.AIResult{
			ESILevel:           result.Completed.ESILevel,
			CriticalSigns:      result.Completed.CriticalSigns,
			Reasoning:          result.Completed.Reasoning,
			SuggestedSpecialty: result.Completed.SuggestedSpecialty,
			ClassifiedAt:       time.Now().UTC(),
		}
		return m.complete(ctx, session, ai, false)
	}
}

func (m *Machine) complete(ctx context.Context, session *Session, ai *models.AIResult, degraded bool) (models.ChatReply, error) {
	outcome := models.IntakeOutcome{
		SymptomsText: strings.Join(session.SymptomTexts, "; "),
		Conversation: session.Turns,
		Gender:       session.Gender,
		AgeGroup:     session.AgeGroup,
		AI:           ai,
	}

	record, err := m.recorder.CreateFromIntake(ctx, outcome)
	if err != nil {
		// Leave the session open so the turn can be retried.
		return models.ChatReply{}, err
	}

	session.State = StateCompleted
	session.Degraded = degraded
	session.RecordID = &record.ID
	metrics.IncSessionsCompleted()
	if degraded {
		metrics.IncSessionsDegraded()
	}

	message := msgCompleted + record.AnonymousCode
	if degraded {
		message = msgDegraded
	}
	session.appendTurn(models.SpeakerAssistant, message)

	reply := m.reply(session, []string{message}, nil)
	reply.Completed = true
	reply.Degraded = degraded
	reply.RecordID = &record.ID
	reply.AnonymousCode = record.AnonymousCode
	return reply, nil
}

func (m *Machine) say(session *Session, messages []string, options []string) models.ChatReply {
	for _, msg := range messages {
		session.appendTurn(models.SpeakerAssistant, msg)
	}
	return m.reply(session, messages, options)
}

func (m *Machine) reply(session *Session, messages []string, options []string) models.ChatReply {
	if len(options) > triage.MaxOptions {
		options = options[:triage.MaxOptions]
	}
	return models.ChatReply{
		SessionID: session.ID,
		Messages:  messages,
		Options:   options,
		Completed: session.State == StateCompleted,
		Degraded:  session.Degraded,
		RecordID:  session.RecordID,
	}
}
