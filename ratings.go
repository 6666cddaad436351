package dinetap

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Rating is one customer rating of a menu item.
type Rating struct {
	ID         string    `json:"id"`
	MenuItemID string    `json:"menuItemId"`
	OrderID    string    `json:"orderId,omitempty"`
	Stars      int       `json:"stars"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RatingService submits and lists ratings.
type RatingService struct {
	c *Client
}

// Submit records a rating for a menu item.
func (s *RatingService) Submit(ctx context.Context, menuItemID, orderID string, stars int, comment string) (*Rating, error) {
	body := map[string]any{
		"menuItemId": menuItemID,
		"orderId":    orderID,
		"stars":      stars,
		"comment":    comment,
	}
	var rating Rating
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/v1/ratings", nil, body, &rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

// ForItem lists ratings for a menu item.
func (s *RatingService) ForItem(ctx context.Context, menuItemID string) ([]Rating, error) {
	query := url.Values{"menuItemId": {menuItemID}}
	var ratings []Rating
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/v1/ratings", query, nil, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}
