package dinetap

import (
	"context"
	"net/http"
	"time"
)

// OrderStatus is the server-reported order state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem is one line of an order.
type OrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name,omitempty"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// Order is a placed order as the backend reports it.
type Order struct {
	ID        string      `json:"id"`
	TableCode string      `json:"tableCode,omitempty"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OrderRequest is the payload for placing an order.
type OrderRequest struct {
	TableCode    string      `json:"tableCode,omitempty"`
	Items        []OrderItem `json:"items"`
	Notes        string      `json:"notes,omitempty"`
	GroupOrderID string      `json:"groupOrderId,omitempty"`
}

// OrderService places and tracks orders.
type OrderService struct {
	c *Client
}

// Create places an order.
func (s *OrderService) Create(ctx context.Context, req *OrderRequest) (*Order, error) {
	var order Order
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Mine lists the caller's orders.
func (s *OrderService) Mine(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/orders/my-orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get fetches one order.
func (s *OrderService) Get(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/orders/"+orderID, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Status fetches just the status of one order.
func (s *OrderService) Status(ctx context.Context, orderID string) (OrderStatus, error) {
	var resp struct {
		Status OrderStatus `json:"status"`
	}
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/orders/"+orderID+"/status", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Track polls an order until it reaches a terminal status or ctx expires.
// Updates are delivered on the returned channel, which closes when tracking
// stops.
func (s *OrderService) Track(ctx context.Context, orderID string, interval time.Duration) <-chan Order {
	updates := make(chan Order, 1)
	go func() {
		defer close(updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last OrderStatus
		for {
			order, err := s.Get(ctx, orderID)
			if err == nil && order.Status != last {
				last = order.Status
				select {
				case updates <- *order:
				case <-ctx.Done():
					return
				}
				if last == OrderDelivered || last == OrderCancelled {
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
