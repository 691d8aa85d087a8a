package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nyaruka/phonenumbers"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/pkg/errs"
)

// defaultRegion is used to parse phone numbers given without a country code.
const defaultRegion = "IN"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name         string
	Age          int
	Gender       string
	Email        *string
	Phone        *string
	LanguageCode string
}

type UpdateRequest struct {
	Name         *string
	Age          *int
	Gender       *string
	Email        *string
	Phone        *string
	LanguageCode *string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	FindByEmail(ctx context.Context, email string) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*model.Patient, error)
	// Deactivate soft-deletes: the patient stops receiving reminders and
	// summary refreshes but the ledger history stays queryable.
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, page, perPage int) ([]model.Patient, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type patientService struct {
	db *gorm.DB
}

func New(db *gorm.DB) Service {
	return &patientService{db: db}
}

func (s *patientService) Create(ctx context.Context, req CreateRequest) (*model.Patient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errs.Validation("name is required")
	}
	if req.Age < 0 || req.Age > 150 {
		return nil, errs.Validation("age %d out of range", req.Age)
	}

	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = "en"
	}

	p := model.Patient{
		Name:         strings.TrimSpace(req.Name),
		Age:          req.Age,
		Gender:       req.Gender,
		Email:        req.Email,
		Phone:        phone,
		LanguageCode: lang,
		Active:       true,
	}

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return &p, nil
}

func (s *patientService) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}

func (s *patientService) FindByEmail(ctx context.Context, email string) (*model.Patient, error) {
	var p model.Patient
	err := s.db.WithContext(ctx).First(&p, "email = ?", email).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("find patient by email: %w", err)
	}
	return &p, nil
}

func (s *patientService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*model.Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, errs.Validation("name cannot be empty")
		}
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 150 {
			return nil, errs.Validation("age %d out of range", *req.Age)
		}
		p.Age = *req.Age
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.Email != nil {
		p.Email = req.Email
	}
	if req.Phone != nil {
		phone, err := normalizePhone(req.Phone)
		if err != nil {
			return nil, err
		}
		p.Phone = phone
	}
	if req.LanguageCode != nil {
		p.LanguageCode = *req.LanguageCode
	}

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

func (s *patientService) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.Patient{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (s *patientService) List(ctx context.Context, activeOnly bool, page, perPage int) ([]model.Patient, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	q := s.db.WithContext(ctx).Model(&model.Patient{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var patients []model.Patient
	err := q.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// normalizePhone validates and converts to E.164. Nil stays nil; a patient
// without a phone simply cannot have reminders.
func normalizePhone(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(*raw), defaultRegion)
	if err != nil {
		return nil, errs.Validation("invalid phone number %q: %v", *raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return nil, errs.Validation("phone number %q is not a valid number", *raw)
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	return &e164, nil
}

// uniqueViolationCode is the postgres error code for a unique constraint hit.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
