package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/reminder"
)

type ReminderHandler struct {
	svc reminder.Service
}

func NewReminderHandler(svc reminder.Service) *ReminderHandler {
	return &ReminderHandler{svc: svc}
}

func mapReminderError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reminder.ErrReminderNotFound),
		errors.Is(err, reminder.ErrMedicationNotFound):
		return notFound(c, err.Error())
	default:
		return mapKindError(c, err)
	}
}

// POST /reminders
func (h *ReminderHandler) Create(c fiber.Ctx) error {
	var body struct {
		MedicationID  string   `json:"medication_id"`
		ReminderTimes []string `json:"reminder_times"`
		CustomMessage *string  `json:"custom_message"`
		LanguageCode  string   `json:"language_code"`
		StartDate     string   `json:"start_date"`
		EndDate       string   `json:"end_date"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	medicationID, err := scopeFromQuery(body.MedicationID)
	if err != nil || medicationID == nil {
		return badRequest(c, "invalid medication_id")
	}
	start, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		return badRequest(c, "invalid start_date, want YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", body.EndDate)
	if err != nil {
		return badRequest(c, "invalid end_date, want YYYY-MM-DD")
	}

	r, err := h.svc.Create(c.Context(), reminder.CreateRequest{
		MedicationID:  *medicationID,
		ReminderTimes: body.ReminderTimes,
		CustomMessage: body.CustomMessage,
		LanguageCode:  body.LanguageCode,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return mapReminderError(c, err)
	}
	return created(c, r)
}

// GET /patients/:id/reminders
func (h *ReminderHandler) ListByPatient(c fiber.Ctx) error {
	patientID, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid patient id")
	}

	reminders, err := h.svc.ListByPatient(c.Context(), patientID)
	if err != nil {
		return mapReminderError(c, err)
	}
	return ok(c, reminders)
}

// GET /reminders/:id
func (h *ReminderHandler) Get(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid reminder id")
	}

	r, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapReminderError(c, err)
	}
	return ok(c, r)
}

// PATCH /reminders/:id/status
func (h *ReminderHandler) UpdateStatus(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid reminder id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid body")
	}

	var (
		r   *model.Reminder
		err error
	)
	switch model.ReminderStatus(body.Status) {
	case model.ReminderPaused:
		r, err = h.svc.Pause(c.Context(), id)
	case model.ReminderActive:
		r, err = h.svc.Resume(c.Context(), id)
	case model.ReminderCancelled:
		r, err = h.svc.Cancel(c.Context(), id)
	default:
		return badRequest(c, "status must be one of: active, paused, cancelled")
	}
	if err != nil {
		return mapReminderError(c, err)
	}
	return ok(c, r)
}

// GET /reminders/:id/logs
func (h *ReminderHandler) ListLogs(c fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid reminder id")
	}

	var q struct {
		Limit int `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	logs, err := h.svc.ListLogs(c.Context(), id, q.Limit)
	if err != nil {
		return mapReminderError(c, err)
	}
	return ok(c, logs)
}

// POST /gateway/sms-status
//
// Twilio posts application/x-www-form-urlencoded with MessageSid and
// MessageStatus. Always answer 204: the gateway retries on errors and a
// stale callback must not accumulate retries.
func (h *ReminderHandler) GatewayStatus(c fiber.Ctx) error {
	sid := c.FormValue("MessageSid")
	status := c.FormValue("MessageStatus")
	if sid == "" || status == "" {
		return noContent(c)
	}

	if err := h.svc.SettleCallback(c.Context(), sid, status); err != nil {
		return mapReminderError(c, err)
	}
	return noContent(c)
}
