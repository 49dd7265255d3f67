package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/services"
)

// Audit periodically sweeps the store for comments whose cached counters no
// longer match their rows and repairs them.
type Audit struct {
	logger    *zap.Logger
	auditor   services.CounterAuditor
	metrics   *metrics.Metrics
	cron      *cron.Cron
	schedule  string
	batchSize int
	timeout   time.Duration
}

func NewAudit(logger *zap.Logger, auditor services.CounterAuditor, m *metrics.Metrics, schedule string, batchSize int) *Audit {
	return &Audit{
		logger:    logger,
		auditor:   auditor,
		metrics:   m,
		cron:      cron.New(),
		schedule:  schedule,
		batchSize: batchSize,
		timeout:   time.Minute,
	}
}

func (this *Audit) Start() error {
	_, err := this.cron.AddFunc(this.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), this.timeout)
		defer cancel()
		this.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	this.logger.Info("starting counter audit", zap.String("schedule", this.schedule))
	this.cron.Start()
	return nil
}

func (this *Audit) Stop() error {
	this.logger.Info("stopping counter audit")

	<-this.cron.Stop().Done()
	return nil
}

// Sweep repairs up to batchSize drifted comments and returns how many were
// rewritten.
func (this *Audit) Sweep(ctx context.Context) (int, error) {
	ids, err := this.auditor.SelectDriftedCommentIDs(ctx, this.batchSize)
	if err != nil {
		this.logger.Error("error selecting drifted comments", zap.Error(err))
		this.metrics.RecordAuditRun(0, err)
		return 0, err
	}

	repaired := 0
	for _, id := range ids {
		repair, err := this.auditor.RepairCommentCounters(ctx, id)
		if err != nil {
			this.logger.Error("error repairing comment counters", zap.String("comment_id", id.String()), zap.Error(err))
			this.metrics.RecordAuditRun(repaired, err)
			return repaired, err
		}
		if repair.Drifted() {
			recordRepair(this.logger, this.metrics, repair)
			repaired++
		}
	}

	this.logger.Info("counter audit finished", zap.Int("checked", len(ids)), zap.Int("repaired", repaired))
	this.metrics.RecordAuditRun(repaired, nil)
	return repaired, nil
}
