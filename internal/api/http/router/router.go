package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/config"
	"github.com/sehatline/sehat_backend/internal/api/http/handler"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/internal/service/consultation"
	"github.com/sehatline/sehat_backend/internal/service/patient"
	"github.com/sehatline/sehat_backend/internal/service/reminder"
	"github.com/sehatline/sehat_backend/internal/service/summary"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Redis           *redis.Client
	DB              *gorm.DB
	PatientSvc      patient.Service
	ConsultationSvc consultation.Service
	AdherenceSvc    adherence.Service
	SummarySvc      summary.Service
	ReminderSvc     reminder.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	patientH := handler.NewPatientHandler(r.p.PatientSvc, r.p.SummarySvc, r.p.AdherenceSvc)
	consultationH := handler.NewConsultationHandler(r.p.ConsultationSvc, r.p.AdherenceSvc)
	reminderH := handler.NewReminderHandler(r.p.ReminderSvc)

	api := app.Group("/api/v1")

	r.registerPatientRoutes(api, patientH, consultationH, reminderH)
	r.registerConsultationRoutes(api, consultationH)
	r.registerReminderRoutes(api, reminderH)

	// Gateway callbacks live outside the versioned API surface.
	app.Post("/gateway/sms-status", reminderH.GatewayStatus)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	probe := func(c fiber.Ctx) bool {
		sqlDB, err := r.p.DB.DB()
		if err != nil {
			return false
		}
		return sqlDB.PingContext(c.Context()) == nil
	}

	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{Probe: probe}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
