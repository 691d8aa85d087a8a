package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/sehatline/sehat_backend/internal/api/http/handler"
)

func (r *Router) registerReminderRoutes(api fiber.Router, rh *handler.ReminderHandler) {
	reminders := api.Group("/reminders")

	reminders.Post("/", rh.Create)

	rem := reminders.Group("/:id")
	rem.Get("/", rh.Get)
	rem.Patch("/status", rh.UpdateStatus)
	rem.Get("/logs", rh.ListLogs)
}
