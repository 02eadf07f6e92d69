// Package scheduler runs the periodic warehouse jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/config"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/service/batches"
)

const (
	jobTimeout   = 2 * time.Minute
	urgentPrefix = "URGENT"
)

// Rescorer refreshes persisted risk categories.
type Rescorer interface {
	RescoreAll(ctx context.Context) (batches.RescoreSummary, error)
}

// Planner builds the daily reports.
type Planner interface {
	DistributionRecommendations(ctx context.Context) (models.DistributionResponse, error)
	StorageRecommendations(ctx context.Context) (models.StorageReport, error)
}

// CapacityReporter reports storage occupancy.
type CapacityReporter interface {
	StorageCapacity(ctx context.Context) (models.StorageCapacity, error)
}

// PlanExporter publishes a plan outside the service.
type PlanExporter interface {
	ExportPlan(ctx context.Context, reportID string, plan models.DistributionPlan) error
}

// Notifier delivers operator alerts.
type Notifier interface {
	DistributionAlert(ctx context.Context, rec models.AllocationRecommendation) error
	StorageConditionAlert(ctx context.Context, rec models.StorageRecommendation) error
	CapacityAlert(ctx context.Context, usage models.ZoneUsage) error
}

// Jobs groups the collaborators of the scheduled tasks. Exporter, Capacity and
// Notifier are optional.
type Jobs struct {
	Rescorer Rescorer
	Planner  Planner
	Capacity CapacityReporter
	Exporter PlanExporter
	Notifier Notifier
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	cfg    config.ReportingConfig
	logger *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, jobs Jobs, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jobs.Rescorer == nil || jobs.Planner == nil {
		return nil, errors.New("scheduler requires a rescorer and a planner")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{logger.Sugar()}))),
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
	}, nil
}

var _ cron.Logger = cronLogger{}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.RescoreCronSchedule, s.wrap("rescore", s.RunRescore)); err != nil {
		return fmt.Errorf("schedule rescore job %q: %w", s.cfg.RescoreCronSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.wrap("daily report", s.RunDailyReport)); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("rescore_schedule", s.cfg.RescoreCronSchedule),
		zap.String("report_schedule", s.cfg.CronSchedule),
		zap.String("timezone", s.cfg.Timezone),
	)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	}
}

// RunRescore rescores every stored batch.
func (s *Scheduler) RunRescore(ctx context.Context) error {
	_, err := s.jobs.Rescorer.RescoreAll(ctx)
	return err
}

// RunDailyReport builds the distribution plan, exports it, and alerts on the
// urgent tier, unhealthy storage conditions and critical zones.
func (s *Scheduler) RunDailyReport(ctx context.Context) error {
	resp, err := s.jobs.Planner.DistributionRecommendations(ctx)
	if err != nil {
		return fmt.Errorf("build distribution plan: %w", err)
	}

	var errs []error
	if s.jobs.Exporter != nil {
		if err := s.jobs.Exporter.ExportPlan(ctx, resp.ReportID, resp.Plan); err != nil {
			errs = append(errs, fmt.Errorf("export plan: %w", err))
		}
	}

	if s.jobs.Notifier == nil {
		return errors.Join(errs...)
	}

	for _, rec := range resp.Plan.Recommendations {
		if !strings.HasPrefix(rec.Priority, urgentPrefix) {
			continue
		}
		if err := s.jobs.Notifier.DistributionAlert(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("distribution alert: %w", err))
		}
	}

	storage, err := s.jobs.Planner.StorageRecommendations(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("storage recommendations: %w", err))
	}
	for _, rec := range storage.StorageRecommendations {
		if rec.RiskLevel != models.RiskHigh {
			continue
		}
		if err := s.jobs.Notifier.StorageConditionAlert(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("storage alert %s: %w", rec.StorageLocation, err))
		}
	}

	if s.jobs.Capacity != nil {
		capacity, err := s.jobs.Capacity.StorageCapacity(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("storage capacity: %w", err))
		}
		for _, zone := range capacity.Zones {
			if zone.Status != models.ZoneCritical {
				continue
			}
			if err := s.jobs.Notifier.CapacityAlert(ctx, zone); err != nil {
				errs = append(errs, fmt.Errorf("capacity alert %s: %w", zone.Location, err))
			}
		}
	}

	return errors.Join(errs...)
}
