package usecase

import (
	"context"
	"fmt"

	"OilScope/internal/domain/models"
	applogger "OilScope/pkg/logger"
	"OilScope/pkg/queue"
)

// AnalysisJobType is the queue message type for asynchronous analysis runs.
const AnalysisJobType = "analysis.run"

// AnalysisJob processes queued analysis runs in the background. Results land
// in the usecase's per-variant cache exactly as with synchronous runs.
type AnalysisJob struct {
	analysis *AnalysisUseCase
	l        *applogger.Logger
}

func NewAnalysisJob(analysis *AnalysisUseCase, l *applogger.Logger) *AnalysisJob {
	return &AnalysisJob{analysis: analysis, l: l}
}

func (j *AnalysisJob) Name() string { return "analysis_runner" }

func (j *AnalysisJob) Type() string { return AnalysisJobType }

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.RunAnalysisRequest](payload)
	if err != nil {
		return fmt.Errorf("analysis job payload: %w", err)
	}

	res, err := j.analysis.Run(ctx, *req)
	if err != nil {
		return fmt.Errorf("analysis job run: %w", err)
	}
	if j.l != nil {
		j.l.Info("queued analysis run complete",
			applogger.String("variant", string(res.Variant)),
			applogger.Bool("converged", res.Convergence.Converged),
		)
	}
	return nil
}
