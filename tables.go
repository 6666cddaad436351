package dinetap

import (
	"context"
	"net/http"
)

// Table identifies a physical table (or cinema seat block) within a venue.
type Table struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	VenueID string `json:"venueId"`
	Name    string `json:"name,omitempty"`
	Active  bool   `json:"active"`
}

// TableService resolves table-scoped session context.
type TableService struct {
	c *Client
}

// ByCode resolves the table a QR code points at.
func (s *TableService) ByCode(ctx context.Context, code string) (*Table, error) {
	var table Table
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/tables/"+code, nil, nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}
