package jobs

import (
	"context"
	"time"

	"github.com/straye-as/proposal-api/internal/config"
	"go.uber.org/zap"
)

// RecalculationJobName is the scheduler name of the stale totals job
const RecalculationJobName = "stale_recalculation"

// StaleRecalculator recalculates proposals whose stored totals are older than staleAfter.
// Implemented by service.PricingService.
type StaleRecalculator interface {
	RecalculateStale(ctx context.Context, staleAfter time.Duration, limit int) (recalculated, failed int, err error)
}

// RecalculationJob persists fresh totals for proposals that have gone stale,
// for instance after a VAT rate or tier change.
type RecalculationJob struct {
	recalculator StaleRecalculator
	logger       *zap.Logger
	staleAfter   time.Duration
	timeout      time.Duration
	batchSize    int
}

// NewRecalculationJob creates the job from the jobs configuration
func NewRecalculationJob(recalculator StaleRecalculator, cfg *config.JobsConfig, logger *zap.Logger) *RecalculationJob {
	return &RecalculationJob{
		recalculator: recalculator,
		logger:       logger,
		staleAfter:   cfg.StaleAfterDuration(),
		timeout:      cfg.TimeoutDuration(),
		batchSize:    cfg.RecalculationBatchSize,
	}
}

// Run executes one pass. Called by the scheduler.
func (j *RecalculationJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	recalculated, failed, err := j.recalculator.RecalculateStale(ctx, j.staleAfter, j.batchSize)
	if err != nil {
		j.logger.Error("stale recalculation run failed",
			zap.Int("recalculated", recalculated),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	j.logger.Info("stale recalculation run completed",
		zap.Int("recalculated", recalculated),
		zap.Int("failed", failed),
		zap.Duration("stale_after", j.staleAfter),
		zap.Duration("duration", time.Since(start)),
	)
}

// Register adds the job to the scheduler under RecalculationJobName
func (j *RecalculationJob) Register(s *Scheduler, cronExpr string) error {
	return s.AddJob(RecalculationJobName, cronExpr, j.Run)
}
