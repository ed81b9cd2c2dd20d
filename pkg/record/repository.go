package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type recordModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnonymousCode      string    `gorm:"size:7;uniqueIndex"`
	SymptomsText       string
	Conversation       datatypes.JSON `gorm:"type:jsonb"`
	Gender             *string
	AgeGroup           *string
	AIResponse         datatypes.JSON `gorm:"type:jsonb"`
	AIESILevel         *int           `gorm:"index"`
	NurseESILevel      *int
	NurseOverrideLevel *int
	FeedbackText       string
	Validated          bool `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (recordModel) TableName() string { return "clinical_records" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&recordModel{})
}

func (r *Repository) Create(ctx context.Context, rec models.ClinicalRecord) error {
	row, err := toModel(rec)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.ClinicalRecord, error) {
	var row recordModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ClinicalRecord{}, ErrNotFound
		}
		return models.ClinicalRecord{}, err
	}
	return fromModel(row)
}

// ListPending returns non-validated records ordered by urgency then
// recency. Records with no AI payload sort first: a degraded intake is
// treated as needing human attention soonest.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.ClinicalRecord, error) {
	var rows []recordModel
	query := r.db.WithContext(ctx).
		Where("validated = ?", false).
		Order("COALESCE(ai_esi_level, 0) ASC, created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromModels(rows)
}

func (r *Repository) ListValidated(ctx context.Context, limit int) ([]models.ClinicalRecord, error) {
	var rows []recordModel
	query := r.db.WithContext(ctx).
		Where("validated = ?", true).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromModels(rows)
}

// RecordBlindLevel performs the Phase-1 guarded write. The WHERE clause is
// the concurrency control: a second nurse's attempt matches zero rows and
// is rejected instead of overwriting the first judgment.
func (r *Repository) RecordBlindLevel(ctx context.Context, id uuid.UUID, level int) error {
	res := r.db.WithContext(ctx).Model(&recordModel{}).
		Where("id = ? AND nurse_esi_level IS NULL AND validated = ?", id, false).
		Updates(map[string]interface{}{
			"nurse_esi_level": level,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.conflictReason(ctx, id, true)
	}
	return nil
}

// Finalize performs the Phase-2 guarded write: it requires a prior blind
// write and a not-yet-validated record.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID, override *int, feedback string) error {
	res := r.db.WithContext(ctx).Model(&recordModel{}).
		Where("id = ? AND nurse_esi_level IS NOT NULL AND validated = ?", id, false).
		Updates(map[string]interface{}{
			"nurse_override_level": override,
			"feedback_text":        feedback,
			"validated":            true,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.conflictReason(ctx, id, false)
	}
	return nil
}

func (r *Repository) conflictReason(ctx context.Context, id uuid.UUID, blindPhase bool) error {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case rec.Validated:
		return ErrAlreadyValidated
	case blindPhase && rec.NurseESILevel != nil:
		return ErrAlreadyClassified
	case !blindPhase && rec.NurseESILevel == nil:
		return ErrNotClassified
	default:
		return fmt.Errorf("record %s in unexpected state", id)
	}
}

func toModel(rec models.ClinicalRecord) (recordModel, error) {
	conversation, err := json.Marshal(rec.Conversation)
	if err != nil {
		return recordModel{}, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	row := recordModel{
		ID:                 rec.ID,
		AnonymousCode:      rec.AnonymousCode,
		SymptomsText:       rec.SymptomsText,
		Conversation:       conversation,
		NurseESILevel:      rec.NurseESILevel,
		NurseOverrideLevel: rec.NurseOverrideLevel,
		FeedbackText:       rec.FeedbackText,
		Validated:          rec.Validated,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if rec.Gender != nil {
		g := string(*rec.Gender)
		row.Gender = &g
	}
	if rec.AgeGroup != nil {
		a := string(*rec.AgeGroup)
		row.AgeGroup = &a
	}
	if rec.AI != nil {
		payload, err := json.Marshal(rec.AI)
		if err != nil {
			return recordModel{}, fmt.Errorf("failed to marshal ai payload: %w", err)
		}
		row.AIResponse = payload
		level := rec.AI.ESILevel
		row.AIESILevel = &level
	}
	return row, nil
}

func fromModel(row recordModel) (models.ClinicalRecord, error) {
	rec := models.ClinicalRecord{
		ID:                 row.ID,
		AnonymousCode:      row.AnonymousCode,
		SymptomsText:       row.SymptomsText,
		NurseESILevel:      row.NurseESILevel,
		NurseOverrideLevel: row.NurseOverrideLevel,
		FeedbackText:       row.FeedbackText,
		Validated:          row.Validated,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if len(row.Conversation) > 0 {
		if err := json.Unmarshal(row.Conversation, &rec.Conversation); err != nil {
			return models.ClinicalRecord{}, fmt.Errorf("failed to unmarshal conversation: %w", err)
		}
	}
	if row.Gender != nil {
		g := models.Gender(*row.Gender)
		rec.Gender = &g
	}
	if row.AgeGroup != nil {
		a := models.AgeGroup(*row.AgeGroup)
		rec.AgeGroup = &a
	}
	if len(row.AIResponse) > 0 {
		var ai models.AIResult
		if err := json.Unmarshal(row.AIResponse, &ai); err != nil {
			return models.ClinicalRecord{}, fmt.Errorf("failed to unmarshal ai payload: %w", err)
		}
		rec.AI = &ai
	}
	return rec, nil
}

func fromModels(rows []recordModel) ([]models.ClinicalRecord, error) {
	records := make([]models.ClinicalRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromModel(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
