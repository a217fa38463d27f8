package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/marketdesk/internal/export"
	jobmetrics "github.com/odyssey-erp/marketdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DocumentRenderer renders an export table to PDF.
type DocumentRenderer interface {
	Render(ctx context.Context, table export.Table) ([]byte, error)
}

// ResultSink stores the outcome of an export.
type ResultSink interface {
	Complete(ctx context.Context, id string, pdf []byte) error
	Fail(ctx context.Context, id, message string) error
}

// ExportPDFJob renders queued exports and stores the documents.
type ExportPDFJob struct {
	Renderer DocumentRenderer
	Results  ResultSink
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewExportPDFJob wires dependencies for the export handler.
func NewExportPDFJob(renderer DocumentRenderer, results ResultSink, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportPDFJob {
	return &ExportPDFJob{Renderer: renderer, Results: results, Logger: logger, Metrics: metrics}
}

// Handle processes TaskExportPDF tasks.
func (j *ExportPDFJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Renderer == nil || j.Results == nil {
		return errors.New("export pdf: handler not configured")
	}
	var payload ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("export pdf: decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskExportPDF)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := j.logger().With(slog.String("job_id", payload.JobID), slog.String("screen", payload.Screen))

	pdf, err := j.Renderer.Render(ctx, payload.Table)
	if err != nil {
		logger.Error("render export", slog.Int("rows", len(payload.Table.Rows)), slog.Any("error", err))
		if lastAttempt(ctx) {
			if ferr := j.Results.Fail(ctx, payload.JobID, "Gagal membuat dokumen PDF"); ferr != nil {
				logger.Error("store export failure", slog.Any("error", ferr))
			}
		}
		return err
	}
	if err := j.Results.Complete(ctx, payload.JobID, pdf); err != nil {
		logger.Error("store export", slog.Any("error", err))
		return err
	}
	j.metrics().ObserveDocument(payload.Screen, len(pdf))
	logger.Info("export rendered", slog.Int("rows", len(payload.Table.Rows)), slog.Int("bytes", len(pdf)))
	return nil
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	limit, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= limit
}

func (j *ExportPDFJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ExportPDFJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
