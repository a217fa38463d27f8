package jobs

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/marketdesk/internal/export"
)

// PDFEnqueuer submits export tasks. Client satisfies it.
type PDFEnqueuer interface {
	EnqueueExportPDF(ctx context.Context, payload ExportPDFPayload) error
}

// ResultStarter records a pending export before it is queued.
type ResultStarter interface {
	Begin(ctx context.Context, id, owner, title string) error
	Fail(ctx context.Context, id, message string) error
}

// ExportQueue schedules PDF exports for the worker.
type ExportQueue struct {
	client  PDFEnqueuer
	results ResultStarter
}

// NewExportQueue wires the task client and result store.
func NewExportQueue(client PDFEnqueuer, results ResultStarter) *ExportQueue {
	return &ExportQueue{client: client, results: results}
}

// EnqueueExport records the export as pending for owner and queues it.
func (q *ExportQueue) EnqueueExport(ctx context.Context, owner, screen string, table export.Table) (string, error) {
	id := export.NewJobID()
	if err := q.results.Begin(ctx, id, owner, table.Title); err != nil {
		return "", fmt.Errorf("jobs: record export: %w", err)
	}
	payload := ExportPDFPayload{JobID: id, Screen: screen, Table: table}
	if err := q.client.EnqueueExportPDF(ctx, payload); err != nil {
		_ = q.results.Fail(ctx, id, "Ekspor tidak dapat dijadwalkan")
		return "", fmt.Errorf("jobs: enqueue export: %w", err)
	}
	return id, nil
}
