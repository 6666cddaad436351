package dinetap

import (
	"context"
	"net/http"
	"time"
)

// WaiterCall is a pending request for table service.
type WaiterCall struct {
	ID        string    `json:"id"`
	TableCode string    `json:"tableCode"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// WaiterCallService raises and cancels waiter calls.
type WaiterCallService struct {
	c *Client
}

// Create raises a waiter call for a table.
func (s *WaiterCallService) Create(ctx context.Context, tableCode, reason string) (*WaiterCall, error) {
	body := map[string]string{"tableCode": tableCode, "reason": reason}
	var call WaiterCall
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/waiter-calls", nil, body, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// Active lists the caller's unresolved waiter calls.
func (s *WaiterCallService) Active(ctx context.Context) ([]WaiterCall, error) {
	var calls []WaiterCall
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/waiter-calls/active", nil, nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// Cancel withdraws a waiter call.
func (s *WaiterCallService) Cancel(ctx context.Context, callID string) error {
	return s.c.doJSON(ctx, http.MethodDelete, "/api/waiter-calls/"+callID, nil, nil, nil)
}
