package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/api/http/handler"
)

func (r *Router) registerPatientRoutes(
	api fiber.Router,
	ph *handler.PatientHandler,
	ch *handler.ConsultationHandler,
	rh *handler.ReminderHandler,
) {
	patients := api.Group("/patients")

	patients.Get("/", ph.List)
	patients.Post("/", ph.Create)

	p := patients.Group("/:id")
	p.Get("/", ph.Get)
	p.Patch("/", ph.Update)
	p.Delete("/", ph.Deactivate)

	// Derived views
	p.Get("/summary", ph.Summary)
	p.Get("/adherence", ph.Adherence)

	// Clinical facts
	p.Post("/consultations", ch.Create)
	p.Get("/consultations", ch.List)
	p.Get("/medications", ch.ListMedications)
	p.Post("/scans", ch.RecordScan)
	p.Post("/chat", ch.RecordChat)
	p.Get("/chat", ch.ListChat)

	// Reminders
	p.Get("/reminders", rh.ListByPatient)
}
