package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/marketdesk/internal/export"
)

const (
	// QueueExports holds document export tasks.
	QueueExports = "exports"
	// TaskExportPDF renders a projected list view into a PDF document.
	TaskExportPDF = "export:pdf"
)

// ExportPDFPayload carries the projection captured when the export was
// requested, so the document matches what the user saw.
type ExportPDFPayload struct {
	JobID  string       `json:"job_id"`
	Screen string       `json:"screen"`
	Table  export.Table `json:"table"`
}

// NewExportPDFTask constructs an Asynq task.
func NewExportPDFTask(payload ExportPDFPayload) (*asynq.Task, error) {
	if payload.JobID == "" {
		return nil, errors.New("jobs: export job id required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportPDF, data,
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}
