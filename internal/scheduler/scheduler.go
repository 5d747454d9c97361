package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TargetSentinel/internal/ingest"
	"TargetSentinel/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cycler runs one ingestion cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (ingest.CycleResult, error)
}

// Statistics is the read side used by the daily report.
type Statistics interface {
	Windows(ctx context.Context, variant *model.Variant, endDate time.Time) (model.WindowStatistics, error)
	AverageProfits(ctx context.Context) ([]model.AverageProfit, error)
	SuccessTrend(ctx context.Context, variant *model.Variant, endDate time.Time, days int) (float64, error)
}

// Report is the outcome of one daily statistics run. Entries whose query
// failed are omitted and counted in Errors.
type Report struct {
	EndDate  time.Time
	Windows  []model.WindowStatistics
	Profits  []model.AverageProfit
	Trend    float64
	Errors   int
	Duration time.Duration
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron      *cron.Cron
	driver    Cycler
	stats     Statistics
	trendDays int
	log       zerolog.Logger
	now       func() time.Time
	ctx       context.Context
}

// NewScheduler creates a new Scheduler. ctx bounds every job it runs.
func NewScheduler(ctx context.Context, driver Cycler, stats Statistics, trendDays int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		driver:    driver,
		stats:     stats,
		trendDays: trendDays,
		log:       log.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
		ctx:       ctx,
	}
}

// RegisterAll registers the ingestion and daily report jobs.
func (s *Scheduler) RegisterAll(ingestCron, reportCron string) error {
	if _, err := s.cron.AddFunc(ingestCron, s.ingestTask); err != nil {
		return fmt.Errorf("register ingestion task: %w", err)
	}
	if _, err := s.cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunIngestionNow executes one ingestion cycle immediately (RUN_ON_START).
func (s *Scheduler) RunIngestionNow() {
	s.ingestTask()
}

func (s *Scheduler) ingestTask() {
	res, err := s.driver.RunCycle(s.ctx)
	switch {
	case errors.Is(err, ingest.ErrCycleInProgress):
		s.log.Debug().Msg("ingestion tick skipped")
	case err != nil:
		s.log.Error().Err(err).Msg("ingestion cycle failed")
	default:
		s.log.Debug().
			Int("instruments", res.Instruments).
			Int("failed", res.Failed).
			Int64("rows", res.RowsChanged).
			Msg("ingestion tick done")
	}
}

func (s *Scheduler) reportTask() {
	rep := s.BuildReport(s.ctx)
	for _, ws := range rep.Windows {
		scope := "all"
		if ws.Variant != nil {
			scope = ws.Variant.String()
		}
		s.log.Info().
			Str("variant", scope).
			Float64("day_pct", ws.Day.SuccessRatePercent).
			Int64("day_n", ws.Day.SampleCount).
			Float64("week_pct", ws.Week.SuccessRatePercent).
			Int64("week_n", ws.Week.SampleCount).
			Float64("month_pct", ws.Month.SuccessRatePercent).
			Int64("month_n", ws.Month.SampleCount).
			Msg("success rates")
	}
	for _, p := range rep.Profits {
		s.log.Info().Str("variant", p.Variant.String()).Float64("avg_sell_pct", p.Value).Msg("average profit")
	}
	s.log.Info().
		Time("end", rep.EndDate).
		Float64("trend", rep.Trend).
		Int("errors", rep.Errors).
		Dur("took", rep.Duration).
		Msg("daily report")
}

// BuildReport queries window statistics for every variant and for all
// variants combined, the average profits and the success trend, all ending
// at the start of the current UTC day. A failing query is logged and skipped.
func (s *Scheduler) BuildReport(ctx context.Context) Report {
	start := s.now()
	rep := Report{EndDate: start.UTC().Truncate(24 * time.Hour)}

	scopes := make([]*model.Variant, 0, len(model.AllVariants)+1)
	for i := range model.AllVariants {
		scopes = append(scopes, &model.AllVariants[i])
	}
	scopes = append(scopes, nil)

	for _, v := range scopes {
		ws, err := s.stats.Windows(ctx, v, rep.EndDate)
		if err != nil {
			rep.Errors++
			s.log.Error().Err(err).Msg("window statistics")
			continue
		}
		rep.Windows = append(rep.Windows, ws)
	}

	profits, err := s.stats.AverageProfits(ctx)
	if err != nil {
		rep.Errors++
		s.log.Error().Err(err).Msg("average profits")
	} else {
		rep.Profits = profits
	}

	trend, err := s.stats.SuccessTrend(ctx, nil, rep.EndDate, s.trendDays)
	if err != nil {
		rep.Errors++
		s.log.Error().Err(err).Msg("success trend")
	} else {
		rep.Trend = trend
	}

	rep.Duration = s.now().Sub(start)
	return rep
}
