package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/internal/service/consultation"
	"github.com/sehatline/sehat_backend/internal/service/patient"
	"github.com/sehatline/sehat_backend/internal/service/reminder"
	"github.com/sehatline/sehat_backend/internal/service/summary"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvidePatientService,
		ProvideConsultationService,
		ProvideAdherenceService,
		ProvideSummaryService,
		ProvideReminderService,
	),
)

func ProvidePatientService(db *gorm.DB) patient.Service {
	return patient.New(db)
}

func ProvideConsultationService(db *gorm.DB, nc *nats.Conn) consultation.Service {
	return consultation.New(db, nc)
}

func ProvideAdherenceService(db *gorm.DB, nc *nats.Conn) adherence.Service {
	return adherence.New(db, nc)
}

func ProvideSummaryService(db *gorm.DB, rdb *redis.Client) summary.Service {
	return summary.New(db, rdb, slog.Default())
}

func ProvideReminderService(db *gorm.DB, smsCli *sms.Client) reminder.Service {
	return reminder.New(db, smsCli, slog.Default())
}
