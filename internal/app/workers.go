package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/config"
	"github.com/sehatline/sehat_backend/internal/service/consultation"
	"github.com/sehatline/sehat_backend/internal/service/reminder"
	"github.com/sehatline/sehat_backend/internal/service/summary"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// WorkerModule registers the dispatch loop, the summary refresh worker and
// the reconciler.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc         fx.Lifecycle
	NC         *nats.Conn
	DB         *gorm.DB
	RDB        *redis.Client
	Cfg        *config.Config
	SMS        *sms.Client
	SummarySvc summary.Service
}

func RegisterWorkers(p WorkerParams) {
	tick := time.Duration(p.Cfg.Scheduler.TickSecondsOrDefault()) * time.Second
	claimTimeout := time.Duration(p.Cfg.Scheduler.ClaimTimeoutSeconds) * time.Second
	dispatcher := reminder.NewDispatcher(p.DB, p.RDB, p.SMS, slog.Default(), tick, claimTimeout, p.Cfg.SMS.MaxDailyOrDefault())

	unknownTTL := time.Duration(p.Cfg.Reconciler.UnknownTTLHours) * time.Hour
	reconciler := reminder.NewReconciler(p.DB, slog.Default(), unknownTTL)

	reconcileEvery := time.Duration(p.Cfg.Reconciler.IntervalMinutes) * time.Minute
	if reconcileEvery <= 0 {
		reconcileEvery = 15 * time.Minute
	}
	summaryStale := time.Duration(p.Cfg.Reconciler.SummaryStaleMinutes) * time.Minute
	if summaryStale <= 0 {
		summaryStale = 30 * time.Minute
	}

	stopCh := make(chan struct{})

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startSummaryWorker(p.NC, p.SummarySvc)
			go runDispatchLoop(dispatcher, tick, stopCh)
			go runReconcileLoop(reconciler, p.SummarySvc, reconcileEvery, summaryStale, stopCh)
			if p.Cfg.Scheduler.WeeklyReports {
				reporter := reminder.NewReporter(p.DB, p.SMS, slog.Default())
				go runWeeklyReportLoop(reporter, stopCh)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stopCh)
			// NATS drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// summary_worker
// ---------------------------------------------------------------------------

// startSummaryWorker refreshes a patient's summary whenever a source table
// changes. Best effort: the reconcile loop sweeps up missed events.
func startSummaryWorker(nc *nats.Conn, summarySvc summary.Service) {
	subject := consultation.SubjectPatientChanged + ".*"
	_, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		parts := strings.Split(msg.Subject, ".")
		if len(parts) < 4 {
			return
		}
		patientID, err := uuid.Parse(parts[3])
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := summarySvc.Refresh(ctx, patientID); err != nil {
			slog.Warn("summary_worker: refresh failed", "patient_id", patientID, "err", err)
		}
	})
	if err != nil {
		slog.Error("summary_worker: subscribe failed", "err", err)
		return
	}
	slog.Info("summary_worker: started")
}

// ---------------------------------------------------------------------------
// dispatch_worker
// ---------------------------------------------------------------------------

func runDispatchLoop(d *reminder.Dispatcher, tick time.Duration, stop <-chan struct{}) {
	slog.Info("dispatch_worker: started", "tick", tick.String())
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			slog.Info("dispatch_worker: stopped")
			return
		case now := <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), tick)
			if err := d.Tick(ctx, now); err != nil {
				slog.Error("dispatch_worker: tick failed", "err", err)
			}
			cancel()
		}
	}
}

// ---------------------------------------------------------------------------
// reconcile_worker
// ---------------------------------------------------------------------------

func runReconcileLoop(r *reminder.Reconciler, summarySvc summary.Service, every, summaryStale time.Duration, stop <-chan struct{}) {
	slog.Info("reconcile_worker: started", "interval", every.String())
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			slog.Info("reconcile_worker: stopped")
			return
		case now := <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			if err := r.Run(ctx, now); err != nil {
				slog.Error("reconcile_worker: pass failed", "err", err)
			}
			if n, err := summarySvc.RefreshStale(ctx, summaryStale); err != nil {
				slog.Error("reconcile_worker: stale summary sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("reconcile_worker: stale summaries refreshed", "count", n)
			}
			cancel()
		}
	}
}

// ---------------------------------------------------------------------------
// weekly_report_worker
// ---------------------------------------------------------------------------

// runWeeklyReportLoop checks hourly and fires on Sunday evenings. The claim
// on the synthetic report slot keeps concurrent instances from double-texting.
func runWeeklyReportLoop(r *reminder.Reporter, stop <-chan struct{}) {
	slog.Info("weekly_report_worker: started")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			slog.Info("weekly_report_worker: stopped")
			return
		case now := <-ticker.C:
			if now.Weekday() != time.Sunday || now.Hour() != 18 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			sent, err := r.SendWeeklyReports(ctx, now)
			if err != nil {
				slog.Error("weekly_report_worker: run failed", "err", err)
			} else {
				slog.Info("weekly_report_worker: reports sent", "count", sent)
			}
			cancel()
		}
	}
}
