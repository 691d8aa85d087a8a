package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/internal/service/consultation"
)

type ConsultationHandler struct {
	svc      consultation.Service
	adherSvc adherence.Service
}

func NewConsultationHandler(svc consultation.Service, adherSvc adherence.Service) *ConsultationHandler {
	return &ConsultationHandler{svc: svc, adherSvc: adherSvc}
}

func mapConsultationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, consultation.ErrPatientNotFound),
		errors.Is(err, consultation.ErrConsultationNotFound),
		errors.Is(err, consultation.ErrMedicationNotFound),
		errors.Is(err, adherence.ErrMedicationNotFound):
		return notFound(c, err.Error())
	default:
		return mapKindError(c, err)
	}
}

// POST /patients/:id/consultations
func (h *ConsultationHandler) Create(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var body struct {
		Symptoms         string         `json:"symptoms"`
		Diagnosis        string         `json:"diagnosis"`
		Urgency          string         `json:"urgency"`
		ConfidenceScore  float64        `json:"confidence_score"`
		PredictionMethod string         `json:"prediction_method"`
		SessionData      map[string]any `json:"session_data"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	cons, err := h.svc.RecordConsultation(c.Context(), consultation.RecordConsultationRequest{
		PatientID:        patientID,
		Symptoms:         body.Symptoms,
		Diagnosis:        body.Diagnosis,
		Urgency:          body.Urgency,
		ConfidenceScore:  body.ConfidenceScore,
		PredictionMethod: body.PredictionMethod,
		SessionData:      body.SessionData,
	})
	if err != nil {
		return mapConsultationError(c, err)
	}
	return created(c, cons)
}

// GET /patients/:id/consultations
func (h *ConsultationHandler) List(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var q struct {
		Page    int `query:"page"`
		PerPage int `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	consultations, err := h.svc.ListConsultations(c.Context(), patientID, q.Page, q.PerPage)
	if err != nil {
		return mapConsultationError(c, err)
	}
	return ok(c, consultations)
}

// POST /consultations/:id/medications
func (h *ConsultationHandler) AddMedication(c fiber.Ctx) error {
	consultationID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid consultation id")
	}

	var body struct {
		Name        string  `json:"name"`
		Dosage      string  `json:"dosage"`
		Frequency   string  `json:"frequency"`
		Duration    string  `json:"duration"`
		SideEffects *string `json:"side_effects"`
		StartDate   string  `json:"start_date"`
		EndDate     string  `json:"end_date"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	start, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		return badRequest(c, "invalid start_date, want YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", body.EndDate)
	if err != nil {
		return badRequest(c, "invalid end_date, want YYYY-MM-DD")
	}

	med, err := h.svc.AddMedication(c.Context(), consultation.AddMedicationRequest{
		ConsultationID: consultationID,
		Name:           body.Name,
		Dosage:         body.Dosage,
		Frequency:      body.Frequency,
		Duration:       body.Duration,
		SideEffects:    body.SideEffects,
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		return mapConsultationError(c, err)
	}
	return created(c, med)
}

// GET /patients/:id/medications
func (h *ConsultationHandler) ListMedications(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var q struct {
		All bool `query:"include_inactive"`
	}
	_ = c.Bind().Query(&q)

	meds, err := h.svc.ListMedications(c.Context(), patientID, !q.All)
	if err != nil {
		return mapConsultationError(c, err)
	}
	return ok(c, meds)
}

// PATCH /medications/:id/deactivate
func (h *ConsultationHandler) DeactivateMedication(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid medication id")
	}

	if err := h.svc.DeactivateMedication(c.Context(), id); err != nil {
		return mapConsultationError(c, err)
	}
	return noContent(c)
}

// POST /medications/:id/adherence
func (h *ConsultationHandler) RecordDose(c fiber.Ctx) error {
	medicationID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid medication id")
	}

	var body struct {
		PatientID string  `json:"patient_id"`
		TakenDate string  `json:"taken_date"`
		Taken     bool    `json:"taken"`
		Notes     *string `json:"notes"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	patientID, err := scopeFromQuery(body.PatientID)
	if err != nil || patientID == nil {
		return badRequest(c, "invalid patient_id")
	}
	takenDate, err := time.Parse("2006-01-02", body.TakenDate)
	if err != nil {
		return badRequest(c, "invalid taken_date, want YYYY-MM-DD")
	}

	rec, err := h.adherSvc.RecordDose(c.Context(), adherence.RecordDoseRequest{
		MedicationID: medicationID,
		PatientID:    *patientID,
		TakenDate:    takenDate,
		Taken:        body.Taken,
		Notes:        body.Notes,
	})
	if err != nil {
		return mapConsultationError(c, err)
	}
	return ok(c, rec)
}

// POST /patients/:id/scans
func (h *ConsultationHandler) RecordScan(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var body struct {
		Source    string         `json:"source"`
		Extracted map[string]any `json:"extracted"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	scan, err := h.svc.RecordScan(c.Context(), consultation.RecordScanRequest{
		PatientID: patientID,
		Source:    body.Source,
		Extracted: body.Extracted,
	})
	if err != nil {
		return mapConsultationError(c, err)
	}
	return created(c, scan)
}

// POST /patients/:id/chat
func (h *ConsultationHandler) RecordChat(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var body struct {
		Role         string `json:"role"`
		LanguageCode string `json:"language_code"`
		Content      string `json:"content"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	msg, err := h.svc.RecordChat(c.Context(), consultation.RecordChatRequest{
		PatientID:    patientID,
		Role:         body.Role,
		LanguageCode: body.LanguageCode,
		Content:      body.Content,
	})
	if err != nil {
		return mapConsultationError(c, err)
	}
	return created(c, msg)
}

// GET /patients/:id/chat
func (h *ConsultationHandler) ListChat(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var q struct {
		Limit int `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	msgs, err := h.svc.ListChat(c.Context(), patientID, q.Limit)
	if err != nil {
		return mapConsultationError(c, err)
	}
	return ok(c, msgs)
}
