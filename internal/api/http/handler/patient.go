package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/internal/service/patient"
	"github.com/sehatline/sehat_backend/internal/service/summary"
)

type PatientHandler struct {
	svc        patient.Service
	summarySvc summary.Service
	adherSvc   adherence.Service
}

func NewPatientHandler(svc patient.Service, summarySvc summary.Service, adherSvc adherence.Service) *PatientHandler {
	return &PatientHandler{svc: svc, summarySvc: summarySvc, adherSvc: adherSvc}
}

func mapPatientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, patient.ErrEmailTaken):
		return conflict(c, err.Error())
	default:
		return mapKindError(c, err)
	}
}

// POST /patients
func (h *PatientHandler) Create(c fiber.Ctx) error {
	var body struct {
		Name         string  `json:"name"`
		Age          int     `json:"age"`
		Gender       string  `json:"gender"`
		Email        *string `json:"email"`
		Phone        *string `json:"phone"`
		LanguageCode string  `json:"language_code"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.svc.Create(c.Context(), patient.CreateRequest{
		Name:         body.Name,
		Age:          body.Age,
		Gender:       body.Gender,
		Email:        body.Email,
		Phone:        body.Phone,
		LanguageCode: body.LanguageCode,
	})
	if err != nil {
		return mapPatientError(c, err)
	}
	return created(c, p)
}

// GET /patients
func (h *PatientHandler) List(c fiber.Ctx) error {
	var q struct {
		Page    int  `query:"page"`
		PerPage int  `query:"per_page"`
		All     bool `query:"include_inactive"`
	}
	_ = c.Bind().Query(&q)

	patients, err := h.svc.List(c.Context(), !q.All, q.Page, q.PerPage)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, patients)
}

// GET /patients/:id
func (h *PatientHandler) Get(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	p, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, p)
}

// PATCH /patients/:id
func (h *PatientHandler) Update(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var body struct {
		Name         *string `json:"name"`
		Age          *int    `json:"age"`
		Gender       *string `json:"gender"`
		Email        *string `json:"email"`
		Phone        *string `json:"phone"`
		LanguageCode *string `json:"language_code"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.svc.Update(c.Context(), id, patient.UpdateRequest{
		Name:         body.Name,
		Age:          body.Age,
		Gender:       body.Gender,
		Email:        body.Email,
		Phone:        body.Phone,
		LanguageCode: body.LanguageCode,
	})
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, p)
}

// DELETE /patients/:id
func (h *PatientHandler) Deactivate(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	if err := h.svc.Deactivate(c.Context(), id); err != nil {
		return mapPatientError(c, err)
	}
	return noContent(c)
}

// GET /patients/:id/summary
func (h *PatientHandler) Summary(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	sum, err := h.summarySvc.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, summary.ErrPatientNotFound) {
			return notFound(c, err.Error())
		}
		return mapKindError(c, err)
	}
	return ok(c, sum)
}

// GET /patients/:id/adherence
func (h *PatientHandler) Adherence(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	var q struct {
		WindowDays   int    `query:"window_days"`
		MedicationID string `query:"medication_id"`
	}
	_ = c.Bind().Query(&q)
	if q.WindowDays <= 0 {
		q.WindowDays = 7
	}

	req, err := scopeFromQuery(q.MedicationID)
	if err != nil {
		return badRequest(c, "invalid medication_id")
	}

	rate, err := h.adherSvc.Rate(c.Context(), id, req, q.WindowDays)
	if err != nil {
		return mapKindError(c, err)
	}
	return ok(c, fiber.Map{
		"window_days": q.WindowDays,
		"rate":        rate, // null when no doses fell in the window
	})
}
