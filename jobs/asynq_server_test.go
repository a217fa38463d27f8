package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func health(t *testing.T, inspector QueueInspector) (int, queueHealth) {
	t.Helper()
	router := chi.NewRouter()
	router.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	var body queueHealth
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr.Code, body
}

func TestJobsHealth(t *testing.T) {
	code, body := health(t, fakeInspector{info: &asynq.QueueInfo{Queue: QueueExports, Pending: 3, Active: 1, Failed: 2}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, queueHealth{Queue: QueueExports, Pending: 3, Active: 1, Failed: 2}, body)

	code, body = health(t, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, QueueExports, body.Queue)

	code, _ = health(t, fakeInspector{err: asynq.ErrQueueNotFound})
	assert.Equal(t, http.StatusOK, code)

	code, _ = health(t, fakeInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
	_, err = NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskExportPDF}}})
	assert.Error(t, err)
}
