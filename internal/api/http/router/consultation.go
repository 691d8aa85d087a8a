package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/api/http/handler"
)

func (r *Router) registerConsultationRoutes(api fiber.Router, ch *handler.ConsultationHandler) {
	api.Post("/consultations/:id/medications", ch.AddMedication)

	meds := api.Group("/medications/:id")
	meds.Patch("/deactivate", ch.DeactivateMedication)
	meds.Post("/adherence", ch.RecordDose)
}
