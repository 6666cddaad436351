package dinetap

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

// menuCacheTTL keeps menu reads off the network for a short window; menus
// change rarely within one sitting.
const menuCacheTTL = time.Minute

// MenuCategory groups menu items.
type MenuCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order,omitempty"`
}

// MenuItem is one orderable item.
type MenuItem struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Available   bool    `json:"available"`
}

// Menu is the venue's full menu.
type Menu struct {
	VenueID    string         `json:"venueId"`
	Categories []MenuCategory `json:"categories"`
	Items      []MenuItem     `json:"items"`
}

// MenuService fetches menus with a read-through cache.
type MenuService struct {
	c     *Client
	cache *ttlcache.Cache[string, *Menu]
}

func newMenuService(c *Client) *MenuService {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Menu](menuCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *Menu](),
	)
	go cache.Start()
	return &MenuService{c: c, cache: cache}
}

// Get returns the menu for a venue, serving from cache within the TTL.
func (s *MenuService) Get(ctx context.Context, venueID string) (*Menu, error) {
	if item := s.cache.Get(venueID); item != nil {
		log.Ctx(ctx).Debug().Str("venue", venueID).Msg("menu cache hit")
		return item.Value(), nil
	}

	query := url.Values{}
	if venueID != "" {
		query.Set("venueId", venueID)
	}
	var menu Menu
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/menu", query, nil, &menu); err != nil {
		return nil, err
	}
	s.cache.Set(venueID, &menu, ttlcache.DefaultTTL)
	return &menu, nil
}

// Item fetches a single menu item, bypassing the cache.
func (s *MenuService) Item(ctx context.Context, itemID string) (*MenuItem, error) {
	var item MenuItem
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/menu/items/"+itemID, nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Invalidate drops the cached menu for a venue.
func (s *MenuService) Invalidate(venueID string) {
	s.cache.Delete(venueID)
}

// Close stops the cache's cleanup goroutine.
func (s *MenuService) Close() {
	s.cache.Stop()
}
