package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/marketdesk/internal/export"
)

type captureClient struct {
	payloads []ExportPDFPayload
	err      error
}

func (c *captureClient) EnqueueExportPDF(_ context.Context, payload ExportPDFPayload) error {
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func newResults(t *testing.T) *export.Results {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return export.NewResults(client, time.Minute)
}

func TestExportQueueRecordsPendingResult(t *testing.T) {
	results := newResults(t)
	client := &captureClient{}
	queue := NewExportQueue(client, results)
	ctx := context.Background()

	table := export.Table{Title: "Voucher", Columns: []string{"Kode"}, Rows: [][]string{{"PROMO10"}}}
	id, err := queue.EnqueueExport(ctx, "sess-1", "vouchers", table)
	require.NoError(t, err)
	require.Len(t, client.payloads, 1)
	assert.Equal(t, id, client.payloads[0].JobID)
	assert.Equal(t, "vouchers", client.payloads[0].Screen)

	res, err := results.Get(ctx, id, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, export.StatusPending, res.Status)
	assert.Equal(t, "Voucher", res.Title)
}

func TestExportQueueFailsResultWhenQueueDown(t *testing.T) {
	results := newResults(t)
	queue := NewExportQueue(&captureClient{err: errors.New("redis down")}, results)

	_, err := queue.EnqueueExport(context.Background(), "sess-1", "orders", export.Table{Title: "Pesanan"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}
