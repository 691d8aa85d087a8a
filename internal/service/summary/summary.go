// Package summary maintains the denormalized per-patient aggregate. The
// summary row is always the product of a full recompute inside one
// transaction; it is never patched field-by-field, so a refresh can race
// with writes and still land on a state that was true at some instant.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
)

// consultationScanDepth bounds how many recent consultations feed the
// frequency facets. Counts are still over the whole table.
const consultationScanDepth = 200

const cacheTTL = 10 * time.Minute

type Service interface {
	// Refresh recomputes the summary from the source tables and upserts it.
	Refresh(ctx context.Context, patientID uuid.UUID) (*model.Summary, error)
	// Get returns the stored summary, preferring the cache. A missing
	// summary triggers a refresh rather than an error.
	Get(ctx context.Context, patientID uuid.UUID) (*model.Summary, error)
	// RefreshStale refreshes every summary older than maxAge. Returns how
	// many were recomputed.
	RefreshStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type summaryService struct {
	db     *gorm.DB
	cache  *goredis.Client
	logger *slog.Logger
}

func New(db *gorm.DB, cache *goredis.Client, logger *slog.Logger) Service {
	return &summaryService{db: db, cache: cache, logger: logger}
}

func (s *summaryService) Refresh(ctx context.Context, patientID uuid.UUID) (*model.Summary, error) {
	now := time.Now()
	var out model.Summary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&model.Patient{}).Where("id = ?", patientID).Count(&exists).Error; err != nil {
			return fmt.Errorf("check patient: %w", err)
		}
		if exists == 0 {
			return ErrPatientNotFound
		}

		sum := model.Summary{PatientID: patientID, RefreshedAt: now}

		if err := countFor(tx, &model.Consultation{}, patientID, &sum.ConsultationCount); err != nil {
			return err
		}
		if err := countFor(tx, &model.Medication{}, patientID, &sum.MedicationCount); err != nil {
			return err
		}
		if err := countFor(tx, &model.PrescriptionScan{}, patientID, &sum.ScanCount); err != nil {
			return err
		}
		if err := countFor(tx, &model.ChatMessage{}, patientID, &sum.ChatCount); err != nil {
			return err
		}

		var err error
		if sum.LastConsultationAt, err = maxTime(tx, &model.Consultation{}, patientID, "consulted_at"); err != nil {
			return err
		}
		if sum.LastScanAt, err = maxTime(tx, &model.PrescriptionScan{}, patientID, "scanned_at"); err != nil {
			return err
		}
		if sum.LastChatAt, err = maxTime(tx, &model.ChatMessage{}, patientID, "sent_at"); err != nil {
			return err
		}

		if sum.Adherence7d, err = adherence.RateWith(tx, patientID, nil, 7, now); err != nil {
			return fmt.Errorf("adherence 7d: %w", err)
		}
		if sum.Adherence30d, err = adherence.RateWith(tx, patientID, nil, 30, now); err != nil {
			return fmt.Errorf("adherence 30d: %w", err)
		}

		var consultations []model.Consultation
		if err := tx.Where("patient_id = ?", patientID).
			Order("consulted_at DESC").
			Limit(consultationScanDepth).
			Find(&consultations).Error; err != nil {
			return fmt.Errorf("load consultations: %w", err)
		}

		var symptoms, diagnoses, risks []string
		seen := make(map[string]bool)
		for _, c := range consultations {
			symptoms = append(symptoms, SplitSymptoms(c.Symptoms)...)
			if c.Diagnosis != "" {
				diagnoses = append(diagnoses, c.Diagnosis)
			}
			if (c.Urgency == "high" || c.Urgency == "critical") && c.Diagnosis != "" && !seen[c.Diagnosis] {
				seen[c.Diagnosis] = true
				risks = append(risks, c.Diagnosis)
			}
		}
		sum.CommonSymptoms = TopTerms(symptoms, topK)
		sum.CommonDiagnoses = TopTerms(diagnoses, topK)
		if len(risks) > topK {
			risks = risks[:topK]
		}
		sum.RiskFactors = datatypes.NewJSONSlice(risks)

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "patient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"consultation_count", "medication_count", "scan_count", "chat_count",
				"last_consultation_at", "last_scan_at", "last_chat_at",
				"adherence_7d", "adherence_30d",
				"common_symptoms", "common_diagnoses", "risk_factors",
				"refreshed_at", "updated_at",
			}),
		}).Create(&sum).Error; err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}

		out = sum
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, &out)
	return &out, nil
}

func (s *summaryService) Get(ctx context.Context, patientID uuid.UUID) (*model.Summary, error) {
	if cached := s.cacheGet(ctx, patientID); cached != nil {
		return cached, nil
	}

	var sum model.Summary
	err := s.db.WithContext(ctx).First(&sum, "patient_id = ?", patientID).Error
	if err == gorm.ErrRecordNotFound {
		return s.Refresh(ctx, patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	s.cacheSet(ctx, &sum)
	return &sum, nil
}

func (s *summaryService) RefreshStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&model.Summary{}).
		Where("refreshed_at < ?", cutoff).
		Pluck("patient_id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list stale summaries: %w", err)
	}

	refreshed := 0
	for _, id := range ids {
		if _, err := s.Refresh(ctx, id); err != nil {
			s.logger.Warn("stale summary refresh failed",
				slog.String("patient_id", id.String()),
				slog.String("error", err.Error()))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func countFor(tx *gorm.DB, m any, patientID uuid.UUID, dst *int) error {
	var n int64
	if err := tx.Model(m).Where("patient_id = ?", patientID).Count(&n).Error; err != nil {
		return fmt.Errorf("count %T: %w", m, err)
	}
	*dst = int(n)
	return nil
}

// maxTime selects the column directly instead of MAX() so the driver keeps
// the column's time type.
func maxTime(tx *gorm.DB, m any, patientID uuid.UUID, column string) (*time.Time, error) {
	var ts []time.Time
	err := tx.Model(m).Where("patient_id = ?", patientID).
		Order(column + " DESC").Limit(1).
		Pluck(column, &ts).Error
	if err != nil {
		return nil, fmt.Errorf("max %s for %T: %w", column, m, err)
	}
	if len(ts) == 0 {
		return nil, nil
	}
	return &ts[0], nil
}

func cacheKey(patientID uuid.UUID) string {
	return "summary:" + patientID.String()
}

// Cache failures are logged and ignored; the database row is authoritative.
func (s *summaryService) cacheSet(ctx context.Context, sum *model.Summary) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(sum)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(sum.PatientID), payload, cacheTTL).Err(); err != nil {
		s.logger.Debug("summary cache set failed", slog.String("error", err.Error()))
	}
}

func (s *summaryService) cacheGet(ctx context.Context, patientID uuid.UUID) *model.Summary {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, cacheKey(patientID)).Bytes()
	if err != nil {
		return nil
	}
	var sum model.Summary
	if err := json.Unmarshal(payload, &sum); err != nil {
		return nil
	}
	return &sum
}
