package screen

import (
	"net/http"

	"github.com/odyssey-erp/marketdesk/internal/entity"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
)

// MutationResponse is the body answered for a submitted mutation.
type MutationResponse[T any] struct {
	Pending mutation.Pending   `json:"pending"`
	Record  T                  `json:"record"`
	Sync    mutation.SyncState `json:"sync"`
	Result  mutation.Result    `json:"result,omitempty"`
	Message string             `json:"message,omitempty"`
}

// RespondTicket answers 202 with the optimistic record, or, when the request
// carries wait=1, waits for the outcome and answers 200 with the resolved
// record. A request that stops waiting early still gets the 202 answer.
func RespondTicket[T entity.Record](w http.ResponseWriter, r *http.Request, s *Screen[T], ticket *mutation.Ticket[T]) {
	accepted := MutationResponse[T]{
		Pending: ticket.Pending,
		Record:  ticket.Optimistic,
		Sync:    mutation.StatePending,
	}
	if r.URL.Query().Get("wait") != "1" {
		httpx.JSON(w, http.StatusAccepted, accepted)
		return
	}
	out, final, err := ticket.Wait(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusAccepted, accepted)
		return
	}
	if out.Err != nil && marketapi.IsAuth(out.Err) {
		RespondError(w, out.Err)
		return
	}
	resp := MutationResponse[T]{
		Pending: out.Pending,
		Record:  final,
		Sync:    s.Mutations().SyncState(final.RecordID()),
		Result:  out.Result,
	}
	if out.Err != nil {
		resp.Message = marketapi.UserMessage(out.Err, "")
	}
	httpx.JSON(w, http.StatusOK, resp)
}
