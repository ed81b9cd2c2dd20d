package record

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/anoncode"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// memoryStore implements Store with the same guarded-write semantics as
// the database repository.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.ClinicalRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]models.ClinicalRecord)}
}

func (s *memoryStore) Create(_ context.Context, rec models.ClinicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (models.ClinicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return models.ClinicalRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) ListPending(_ context.Context, limit int) ([]models.ClinicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.ClinicalRecord
	for _, rec := range s.records {
		if !rec.Validated {
			pending = append(pending, rec)
		}
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *memoryStore) ListValidated(_ context.Context, limit int) ([]models.ClinicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var validated []models.ClinicalRecord
	for _, rec := range s.records {
		if rec.Validated {
			validated = append(validated, rec)
		}
	}
	if limit > 0 && len(validated) > limit {
		validated = validated[:limit]
	}
	return validated, nil
}

func (s *memoryStore) RecordBlindLevel(_ context.Context, id uuid.UUID, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Validated {
		return ErrAlreadyValidated
	}
	if rec.NurseESILevel != nil {
		return ErrAlreadyClassified
	}
	rec.NurseESILevel = &level
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *memoryStore) Finalize(_ context.Context, id uuid.UUID, override *int, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Validated {
		return ErrAlreadyValidated
	}
	if rec.NurseESILevel == nil {
		return ErrNotClassified
	}
	rec.NurseOverrideLevel = override
	rec.FeedbackText = feedback
	rec.Validated = true
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

type capturedEvent struct {
	eventType string
	data      map[string]interface{}
}

type stubPublisher struct {
	events []capturedEvent
}

func (p *stubPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.events = append(p.events, capturedEvent{eventType: eventType, data: data})
	return nil
}

func classifiedOutcome(aiLevel int) models.IntakeOutcome {
	gender := models.GenderFemale
	age := models.AgeAdult
	return models.IntakeOutcome{
		SymptomsText: "dolor en el pecho opresivo desde hace una hora",
		Conversation: []models.ConversationTurn{
			{Speaker: models.SpeakerAssistant, Text: "Cuentame que sintomas tienes.", At: time.Now().UTC()},
			{Speaker: models.SpeakerPatient, Text: "dolor en el pecho opresivo desde hace una hora", At: time.Now().UTC()},
		},
		Gender:   &gender,
		AgeGroup: &age,
		AI: &models.AIResult{
			ESILevel:           aiLevel,
			CriticalSigns:      []string{"dolor toracico opresivo"},
			Reasoning:          "Dolor toracico opresivo de inicio reciente en adulto, posible sindrome coronario.",
			SuggestedSpecialty: "cardiologia",
			ClassifiedAt:       time.Now().UTC(),
		},
	}
}

func TestCreateFromIntakeAssignsAnonymousCode(t *testing.T) {
	store := newMemoryStore()
	publisher := &stubPublisher{}
	svc := NewService(store, publisher)

	rec, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if !anoncode.Valid(rec.AnonymousCode) {
		t.Fatalf("expected valid anonymous code, got %q", rec.AnonymousCode)
	}
	if rec.Status() != models.StatusPendingNurseBlind {
		t.Fatalf("expected status pending_nurse_blind, got %s", rec.Status())
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != "record.created" {
		t.Fatalf("expected a single record.created event, got %+v", publisher.events)
	}
}

func TestCreateFromIntakeWithoutAIEmitsDegradedEvent(t *testing.T) {
	store := newMemoryStore()
	publisher := &stubPublisher{}
	svc := NewService(store, publisher)

	outcome := classifiedOutcome(3)
	outcome.AI = nil
	rec, err := svc.CreateFromIntake(context.Background(), outcome)
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if rec.Status() != models.StatusPendingAI {
		t.Fatalf("expected status pending_ai, got %s", rec.Status())
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != "intake.degraded" {
		t.Fatalf("expected a single intake.degraded event, got %+v", publisher.events)
	}
}

func TestWorklistNeverExposesAIPayload(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	if _, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2)); err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	pending, err := svc.Worklist(context.Background(), 0)
	if err != nil {
		t.Fatalf("Worklist failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending record, got %d", len(pending))
	}
	if pending[0].SymptomsText == "" || len(pending[0].Conversation) == 0 {
		t.Fatal("worklist entry is missing the clinical narrative")
	}
	// PendingRecord has no AI field at all; what we can still check is
	// that the status does not leak classification progress.
	if pending[0].Status != models.StatusPendingNurseBlind {
		t.Fatalf("unexpected worklist status %s", pending[0].Status)
	}
}

func TestGetSealsRecordUntilBlindWrite(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	sealed, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sealed.AI != nil {
		t.Fatal("AI payload must not be readable before the blind write")
	}

	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 2); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}

	open, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if open.AI == nil {
		t.Fatal("AI payload should be readable after the blind write")
	}
}

func TestSecondBlindWriteIsRejected(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(3))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 3); err != nil {
		t.Fatalf("first blind write failed: %v", err)
	}
	err = svc.SubmitBlindClassification(context.Background(), created.ID, 4)
	if !errors.Is(err, ErrAlreadyClassified) {
		t.Fatalf("expected ErrAlreadyClassified, got %v", err)
	}

	rec, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.NurseESILevel == nil || *rec.NurseESILevel != 3 {
		t.Fatalf("first blind level must stand, got %v", rec.NurseESILevel)
	}
}

func TestRevealBeforeBlindWriteIsRejected(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	if _, err := svc.Reveal(context.Background(), created.ID); !errors.Is(err, ErrNotClassified) {
		t.Fatalf("expected ErrNotClassified, got %v", err)
	}
}

func TestRevealReportsMatch(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 2); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}

	view, err := svc.Reveal(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if view.AI == nil || view.AI.ESILevel != 2 {
		t.Fatalf("reveal must carry the AI payload, got %+v", view.AI)
	}
	if view.Match == nil || !*view.Match {
		t.Fatalf("expected match=true, got %v", view.Match)
	}
}

func TestRevealOnDegradedRecordHasNoMatch(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	outcome := classifiedOutcome(3)
	outcome.AI = nil
	created, err := svc.CreateFromIntake(context.Background(), outcome)
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 3); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}

	view, err := svc.Reveal(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if view.AI != nil || view.Match != nil {
		t.Fatalf("degraded record must reveal without AI payload or match, got %+v", view)
	}
}

func TestValidateConfirmingLevelLeavesNoOverride(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 3); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}

	rec, err := svc.Validate(context.Background(), created.ID, 3, "coincide con mi evaluacion")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if rec.NurseOverrideLevel != nil {
		t.Fatalf("confirming validation must not record an override, got %v", *rec.NurseOverrideLevel)
	}
	if final := rec.FinalESILevel(); final == nil || *final != 3 {
		t.Fatalf("expected final level 3, got %v", final)
	}
	if rec.Status() != models.StatusValidated {
		t.Fatalf("expected validated status, got %s", rec.Status())
	}
}

func TestValidateDifferentLevelRecordsOverride(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 3); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}

	rec, err := svc.Validate(context.Background(), created.ID, 2, "tras ver la sugerencia reviso mi nivel")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if rec.NurseOverrideLevel == nil || *rec.NurseOverrideLevel != 2 {
		t.Fatalf("expected override level 2, got %v", rec.NurseOverrideLevel)
	}
	if rec.NurseESILevel == nil || *rec.NurseESILevel != 3 {
		t.Fatalf("blind level must be preserved, got %v", rec.NurseESILevel)
	}
	if final := rec.FinalESILevel(); final == nil || *final != 2 {
		t.Fatalf("expected final level 2, got %v", final)
	}
}

func TestValidateBeforeBlindWriteIsRejected(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	if _, err := svc.Validate(context.Background(), created.ID, 2, ""); !errors.Is(err, ErrNotClassified) {
		t.Fatalf("expected ErrNotClassified, got %v", err)
	}
}

func TestValidateTwiceIsRejected(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 2); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}
	if _, err := svc.Validate(context.Background(), created.ID, 2, ""); err != nil {
		t.Fatalf("first validation failed: %v", err)
	}

	if _, err := svc.Validate(context.Background(), created.ID, 4, ""); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("expected ErrAlreadyValidated, got %v", err)
	}
}

func TestLevelOutOfRangeIsRejected(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	for _, level := range []int{0, 6, -1} {
		if err := svc.SubmitBlindClassification(context.Background(), created.ID, level); !errors.Is(err, ErrInvalidLevel) {
			t.Fatalf("blind level %d: expected ErrInvalidLevel, got %v", level, err)
		}
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 3); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}
	if _, err := svc.Validate(context.Background(), created.ID, 0, ""); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestValidatedRecordLeavesWorklist(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(4))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}
	if err := svc.SubmitBlindClassification(context.Background(), created.ID, 4); err != nil {
		t.Fatalf("SubmitBlindClassification failed: %v", err)
	}
	if _, err := svc.Validate(context.Background(), created.ID, 4, ""); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	pending, err := svc.Worklist(context.Background(), 0)
	if err != nil {
		t.Fatalf("Worklist failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("validated record must leave the worklist, got %d entries", len(pending))
	}
}

func TestAgreementReportCountsMatchesAndOverrides(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	// Record A: nurse blind 2, validated at 2, AI said 2 -> match.
	a, _ := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err := svc.SubmitBlindClassification(context.Background(), a.ID, 2); err != nil {
		t.Fatalf("blind write failed: %v", err)
	}
	if _, err := svc.Validate(context.Background(), a.ID, 2, ""); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	// Record B: nurse blind 4, validated at 3, AI said 2 -> override, no match.
	b, _ := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err := svc.SubmitBlindClassification(context.Background(), b.ID, 4); err != nil {
		t.Fatalf("blind write failed: %v", err)
	}
	if _, err := svc.Validate(context.Background(), b.ID, 3, "ajusto el nivel"); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	report, err := svc.AgreementReport(context.Background(), 0)
	if err != nil {
		t.Fatalf("AgreementReport failed: %v", err)
	}
	if report.Total != 2 {
		t.Fatalf("expected 2 validated records, got %d", report.Total)
	}
	if report.Matches != 1 {
		t.Fatalf("expected 1 match, got %d", report.Matches)
	}
	if report.Overrides != 1 {
		t.Fatalf("expected 1 override, got %d", report.Overrides)
	}
	if report.MatchRate != 0.5 {
		t.Fatalf("expected match rate 0.5, got %f", report.MatchRate)
	}
}

func TestConcurrentBlindWritesAdmitExactlyOne(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	created, err := svc.CreateFromIntake(context.Background(), classifiedOutcome(2))
	if err != nil {
		t.Fatalf("CreateFromIntake failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			results <- svc.SubmitBlindClassification(context.Background(), created.ID, level)
		}(1 + i%5)
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrAlreadyClassified):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || rejected != writers-1 {
		t.Fatalf("expected exactly one accepted write, got accepted=%d rejected=%d", accepted, rejected)
	}
}
