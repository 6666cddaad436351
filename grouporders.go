package dinetap

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GroupParticipant is one member of a group order. Spending limits are
// enforced server-side; the client only displays them.
type GroupParticipant struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SpendingLimit float64 `json:"spendingLimit,omitempty"`
	Spent         float64 `json:"spent"`
	IsHost        bool    `json:"isHost"`
}

// GroupOrder is the server-authoritative shared order state.
type GroupOrder struct {
	ID           string             `json:"id"`
	JoinCode     string             `json:"joinCode"`
	TableCode    string             `json:"tableCode,omitempty"`
	Locked       bool               `json:"locked"`
	Participants []GroupParticipant `json:"participants"`
	Items        []OrderItem        `json:"items"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// GroupOrderService is a thin adapter over the group-ordering endpoints.
// Limit enforcement and order locking are server-side; the client only
// reflects state.
type GroupOrderService struct {
	c *Client
}

// Create opens a group order and returns its join code.
func (s *GroupOrderService) Create(ctx context.Context, tableCode, hostName string) (*GroupOrder, error) {
	body := map[string]string{
		"tableCode": tableCode,
		"hostName":  hostName,
		// A stable client identity lets the server de-duplicate rejoins.
		"clientId": uuid.NewString(),
	}
	var group GroupOrder
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/group-orders", nil, body, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Join adds the caller to a group order by join code.
func (s *GroupOrderService) Join(ctx context.Context, joinCode, name string) (*GroupOrder, error) {
	body := map[string]string{
		"name":     name,
		"clientId": uuid.NewString(),
	}
	var group GroupOrder
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/group-orders/join/"+joinCode, nil, body, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Get fetches current group state.
func (s *GroupOrderService) Get(ctx context.Context, groupID string) (*GroupOrder, error) {
	var group GroupOrder
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/group-orders/"+groupID, nil, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// SetSpendingLimit asks the server to cap a participant's spend. Host only;
// the server rejects everyone else.
func (s *GroupOrderService) SetSpendingLimit(ctx context.Context, groupID, participantID string, limit float64) error {
	body := map[string]any{"participantId": participantID, "spendingLimit": limit}
	return s.c.doJSON(ctx, http.MethodPatch, "/api/group-orders/"+groupID+"/limits", nil, body, nil)
}

// Leave removes the caller from a group order.
func (s *GroupOrderService) Leave(ctx context.Context, groupID string) error {
	return s.c.doJSON(ctx, http.MethodPost, "/api/group-orders/"+groupID+"/leave", nil, nil, nil)
}

// Watch polls group state and delivers a snapshot whenever UpdatedAt moves.
// The channel closes when ctx expires. Event push stays server territory;
// polling is the only transport this client assumes.
func (s *GroupOrderService) Watch(ctx context.Context, groupID string, interval time.Duration) <-chan GroupOrder {
	updates := make(chan GroupOrder, 1)
	go func() {
		defer close(updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last time.Time
		for {
			group, err := s.Get(ctx, groupID)
			if err == nil && group.UpdatedAt.After(last) {
				last = group.UpdatedAt
				select {
				case updates <- *group:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates
}
