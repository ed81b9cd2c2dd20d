package record

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/anoncode"
	"github.com/vitalsort/triage/pkg/common/kafka"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/observability/metrics"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidLevel      = errors.New("esi level must be between 1 and 5")
	ErrAlreadyClassified = errors.New("record already classified")
	ErrNotClassified     = errors.New("record not yet classified")
	ErrAlreadyValidated  = errors.New("record already validated")
)

// Store is the persistence contract the service runs against. The two
// phase writes are guarded at this layer: implementations must reject a
// write whose precondition no longer holds, not overwrite.
type Store interface {
	Create(ctx context.Context, rec models.ClinicalRecord) error
	Get(ctx context.Context, id uuid.UUID) (models.ClinicalRecord, error)
	ListPending(ctx context.Context, limit int) ([]models.ClinicalRecord, error)
	ListValidated(ctx context.Context, limit int) ([]models.ClinicalRecord, error)
	RecordBlindLevel(ctx context.Context, id uuid.UUID, level int) error
	Finalize(ctx context.Context, id uuid.UUID, override *int, feedback string) error
}

// EventPublisher matches the kafka producer. A nil publisher disables
// event emission, which keeps the service usable in tests and in
// environments without a broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

type Service struct {
	store  Store
	events EventPublisher
}

func NewService(store Store, events EventPublisher) *Service {
	return &Service{store: store, events: events}
}

// CreateFromIntake persists a completed intake conversation as a clinical
// record under a fresh anonymous code. This is the only way records enter
// the system.
func (s *Service) CreateFromIntake(ctx context.Context, outcome models.IntakeOutcome) (models.ClinicalRecord, error) {
	code, err := anoncode.Generate()
	if err != nil {
		return models.ClinicalRecord{}, err
	}

	now := time.Now().UTC()
	rec := models.ClinicalRecord{
		ID:            uuid.New(),
		AnonymousCode: code,
		SymptomsText:  outcome.SymptomsText,
		Conversation:  outcome.Conversation,
		Gender:        outcome.Gender,
		AgeGroup:      outcome.AgeGroup,
		AI:            outcome.AI,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return models.ClinicalRecord{}, err
	}

	log := logger.WithRecord(rec.ID.String())
	if rec.AI != nil {
		log.WithField("esi_level", rec.AI.ESILevel).Info("Clinical record created")
		s.publish(ctx, kafka.EventRecordCreated, map[string]interface{}{
			"record_id": rec.ID.String(),
			"esi_level": rec.AI.ESILevel,
		})
	} else {
		log.Warn("Clinical record created without AI classification")
		s.publish(ctx, kafka.EventIntakeDegraded, map[string]interface{}{
			"record_id": rec.ID.String(),
		})
	}
	return rec, nil
}

// Worklist returns the pending queue sealed for blind review. The AI
// payload is stripped before the records leave this method, so it cannot
// reach a nurse who has not committed a blind level yet.
func (s *Service) Worklist(ctx context.Context, limit int) ([]models.PendingRecord, error) {
	records, err := s.store.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	pending := make([]models.PendingRecord, 0, len(records))
	for _, rec := range records {
		pending = append(pending, seal(rec))
	}
	metrics.ObservePendingRecords(len(pending))
	return pending, nil
}

// Get returns a single record sealed the same way the worklist is: the AI
// payload is removed until the nurse's blind level is on file.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.ClinicalRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.ClinicalRecord{}, err
	}
	if rec.NurseESILevel == nil {
		rec.AI = nil
	}
	return rec, nil
}

// SubmitBlindClassification records the nurse's independent judgment.
// Exactly one blind write per record: a repeat attempt returns
// ErrAlreadyClassified.
func (s *Service) SubmitBlindClassification(ctx context.Context, id uuid.UUID, level int) error {
	if level < 1 || level > 5 {
		return ErrInvalidLevel
	}
	if err := s.store.RecordBlindLevel(ctx, id, level); err != nil {
		if errors.Is(err, ErrAlreadyClassified) {
			metrics.IncBlindWriteConflicts()
		}
		return err
	}
	logger.WithRecord(id.String()).WithField("nurse_esi_level", level).Info("Blind classification recorded")
	return nil
}

// Reveal exposes the AI suggestion next to the nurse's committed blind
// level. It refuses to reveal anything before the blind write.
func (s *Service) Reveal(ctx context.Context, id uuid.UUID) (models.RevealView, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.RevealView{}, err
	}
	if rec.NurseESILevel == nil {
		return models.RevealView{}, ErrNotClassified
	}

	view := models.RevealView{
		ID:            rec.ID,
		AnonymousCode: rec.AnonymousCode,
		NurseESILevel: *rec.NurseESILevel,
		AI:            rec.AI,
	}
	if rec.AI != nil {
		match := rec.AI.ESILevel == *rec.NurseESILevel
		view.Match = &match
	}
	return view, nil
}

// Validate closes the record with the nurse's final decision. An override
// is stored only when the final level differs from the blind level; a
// confirming final leaves the override column empty so the agreement
// report can distinguish the two.
func (s *Service) Validate(ctx context.Context, id uuid.UUID, finalLevel int, feedback string) (models.ClinicalRecord, error) {
	if finalLevel < 1 || finalLevel > 5 {
		return models.ClinicalRecord{}, ErrInvalidLevel
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.ClinicalRecord{}, err
	}
	if rec.NurseESILevel == nil {
		return models.ClinicalRecord{}, ErrNotClassified
	}
	if rec.Validated {
		return models.ClinicalRecord{}, ErrAlreadyValidated
	}

	var override *int
	if finalLevel != *rec.NurseESILevel {
		override = &finalLevel
	}
	if err := s.store.Finalize(ctx, id, override, feedback); err != nil {
		return models.ClinicalRecord{}, err
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return models.ClinicalRecord{}, err
	}

	metrics.IncRecordsValidated()
	if override != nil {
		metrics.IncValidationOverrides()
	}

	data := map[string]interface{}{
		"record_id":   updated.ID.String(),
		"final_level": finalLevel,
		"overridden":  override != nil,
	}
	if updated.AI != nil {
		data["ai_level"] = updated.AI.ESILevel
		data["match"] = updated.AI.ESILevel == finalLevel
	}
	s.publish(ctx, kafka.EventRecordValidated, data)

	logger.WithRecord(id.String()).WithFields(map[string]interface{}{
		"final_level": finalLevel,
		"overridden":  override != nil,
	}).Info("Record validated")
	return updated, nil
}

// AgreementReport summarizes validated records: how often the nurse's
// final decision matched the AI suggestion, and how often the final
// decision overrode the nurse's own blind level.
func (s *Service) AgreementReport(ctx context.Context, limit int) (models.AgreementReport, error) {
	records, err := s.store.ListValidated(ctx, limit)
	if err != nil {
		return models.AgreementReport{}, err
	}

	report := models.AgreementReport{}
	for _, rec := range records {
		final := rec.FinalESILevel()
		if final == nil {
			continue
		}
		report.Total++
		if rec.NurseOverrideLevel != nil {
			report.Overrides++
		}
		if rec.AI != nil && rec.AI.ESILevel == *final {
			report.Matches++
		}
	}
	if report.Total > 0 {
		report.MatchRate = float64(report.Matches) / float64(report.Total)
	}
	return report, nil
}

func seal(rec models.ClinicalRecord) models.PendingRecord {
	return models.PendingRecord{
		ID:            rec.ID,
		AnonymousCode: rec.AnonymousCode,
		SymptomsText:  rec.SymptomsText,
		Conversation:  rec.Conversation,
		Gender:        rec.Gender,
		AgeGroup:      rec.AgeGroup,
		Status:        rec.Status(),
		CreatedAt:     rec.CreatedAt,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, "record-service", data); err != nil {
		logger.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}
