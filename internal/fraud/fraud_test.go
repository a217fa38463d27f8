package fraud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

type fakeAPI struct {
	cases   []Case
	patch   func(id string, body any) (Case, error)
	actions []string
}

func (f *fakeAPI) List(_ context.Context, _ string, out any) error {
	*(out.(*[]Case)) = f.cases
	return nil
}

func (f *fakeAPI) Patch(_ context.Context, _ string, id string, body, out any) error {
	rec, err := f.patch(id, body)
	if err != nil {
		return err
	}
	*(out.(*Case)) = rec
	return nil
}

func (f *fakeAPI) Action(_ context.Context, _ string, id, action string, body, out any) error {
	f.actions = append(f.actions, id+"/"+action)
	raw, _ := json.Marshal(body)
	ev, err := DecodeEvidence(raw)
	if err != nil {
		return &marketapi.APIError{Status: 400, Message: err.Error()}
	}
	rec := f.cases[0]
	rec.Evidence = EvidenceList{ev}
	*(out.(*Case)) = rec
	return nil
}

func sampleCases() []Case {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return []Case{
		{ID: "c1", Title: "Akun palsu", ReportedUser: "tokoabc", Reporter: "buyer", Status: StatusOpen, Amount: 250000, ReportedAt: at},
		{ID: "c2", Title: "Barang tidak dikirim", ReportedUser: "budi", Reporter: "system", Status: StatusResolved, Amount: 1200000, ReportedAt: at.AddDate(0, 0, 3)},
	}
}

func newService(t *testing.T, api *fakeAPI) (*Service, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	svc := NewService(api, screen.Options{
		Mutation: mutation.Config{Notifier: rec, Validate: mutation.NewValidator(), Timeout: time.Second},
	})
	require.NoError(t, svc.Screen().EnsureLoaded(context.Background()))
	return svc, rec
}

func label(t *testing.T, svc *Service, id string) string {
	t.Helper()
	c, err := svc.Screen().Get(id)
	require.NoError(t, err)
	return c.StatusLabel()
}

func TestStatusUpdateRollsBackOnNetworkFailure(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{cases: sampleCases(), patch: func(string, any) (Case, error) {
		<-release
		return Case{}, &marketapi.APIError{Status: 503}
	}}
	svc, rec := newService(t, api)

	ticket, err := svc.UpdateStatus(context.Background(), "c1", StatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, "Investigating", label(t, svc, "c1"))

	close(release)
	out, _, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mutation.ResultFailed, out.Result)
	assert.Equal(t, "Open", label(t, svc, "c1"))
	require.Len(t, rec.All(), 1)
	assert.Equal(t, notify.KindError, rec.All()[0].Kind)
}

func TestStatusUpdateRejectsUnknownStatus(t *testing.T) {
	api := &fakeAPI{cases: sampleCases()}
	svc, rec := newService(t, api)
	_, err := svc.UpdateStatus(context.Background(), "c1", Status("escalated"))
	assert.True(t, mutation.IsValidation(err))
	assert.Equal(t, "Open", label(t, svc, "c1"))
	assert.Empty(t, rec.All())
}

func TestStatusUpdateConfirmed(t *testing.T) {
	api := &fakeAPI{cases: sampleCases(), patch: func(id string, body any) (Case, error) {
		assert.Equal(t, map[string]Status{"status": StatusResolved}, body)
		c := sampleCases()[0]
		c.Status = StatusResolved
		return c, nil
	}}
	svc, rec := newService(t, api)
	ticket, err := svc.UpdateStatus(context.Background(), "c1", StatusResolved)
	require.NoError(t, err)
	_, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, final.Status)
	assert.Equal(t, "Status kasus diperbarui menjadi Resolved", rec.All()[0].Message)
}

func TestAttachEvidenceValidatesVariant(t *testing.T) {
	api := &fakeAPI{cases: sampleCases()}
	svc, _ := newService(t, api)

	_, err := svc.AttachEvidence(context.Background(), "c1", Screenshot{URL: "not a url"})
	assert.True(t, mutation.IsValidation(err))

	ticket, err := svc.AttachEvidence(context.Background(), "c1", ChatLog{ConversationID: "conv-9", Excerpt: "transfer dulu ya"})
	require.NoError(t, err)
	assert.Len(t, ticket.Optimistic.Evidence, 1)
	_, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, final.Evidence, 1)
	assert.Equal(t, KindChatLog, final.Evidence[0].Kind())
	assert.Equal(t, []string{"c1/evidence"}, api.actions)
}

func TestEvidenceListJSON(t *testing.T) {
	var c Case
	payload := `{"id":"c9","evidence":[{"type":"screenshot","url":"https://cdn.example.com/a.png"},{"type":"transaction","transaction_id":"TX1","amount":5000}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &c))
	require.Len(t, c.Evidence, 2)
	assert.Equal(t, Transaction{TransactionID: "TX1", Amount: 5000}, c.Evidence[1])

	data, err := json.Marshal(c.Evidence)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"screenshot"`)

	err = json.Unmarshal([]byte(`{"evidence":[{"type":"video"}]}`), &c)
	assert.ErrorContains(t, err, "unknown evidence type")
}

func TestSearchAndExport(t *testing.T) {
	svc, _ := newService(t, &fakeAPI{cases: sampleCases()})
	s := svc.Screen()
	s.SetCriteria(listview.Criteria{"search": "BUDI"})
	page := s.Page()
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "c2", page.Rows[0].Record.ID)

	table := s.Export()
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Resolved", table.Rows[0][4])
	assert.Equal(t, "Rp 1.200.000", table.Rows[0][5])
	assert.Equal(t, "-", table.Rows[0][7])
}

func TestHandlerPatchStatusWaits(t *testing.T) {
	api := &fakeAPI{cases: sampleCases(), patch: func(string, any) (Case, error) {
		return Case{}, &marketapi.APIError{Status: 500, Message: "Server sibuk"}
	}}
	svc, _ := newService(t, api)
	h := NewHandler(func(*http.Request) (*Service, error) { return svc, nil }, screen.HandlerDeps{})
	router := chi.NewRouter()
	router.Route("/fraud-cases", h.MountRoutes)

	req := httptest.NewRequest(http.MethodPatch, "/fraud-cases/c1/status?wait=1", strings.NewReader(`{"status":"investigating"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body screen.MutationResponse[Case]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, mutation.ResultFailed, body.Result)
	assert.Equal(t, StatusOpen, body.Record.Status)
	assert.Equal(t, mutation.StateFailed, body.Sync)
	assert.Equal(t, "Server sibuk", body.Message)

	req = httptest.NewRequest(http.MethodPatch, "/fraud-cases/c1/status", strings.NewReader(`{"status":"bogus"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status"`)
}

func TestHandlerListAndSort(t *testing.T) {
	svc, _ := newService(t, &fakeAPI{cases: sampleCases()})
	h := NewHandler(func(*http.Request) (*Service, error) { return svc, nil }, screen.HandlerDeps{})
	router := chi.NewRouter()
	router.Route("/fraud-cases", h.MountRoutes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fraud-cases/?status=open", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var page screen.Page[Case]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Visible)
	assert.Equal(t, 2, page.Total)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/fraud-cases/sort/unknown", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fraud-cases/export.csv", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Akun palsu")
}
