// Package client is a small Go client for the staybook REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"staybook/internal/conflict"
	"staybook/internal/models"

	"github.com/redis/go-redis/v9"
)

// Client calls the REST API with an API key. GET responses for spots may be
// cached in Redis.
type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	userID     int64
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Availability is the dry-run answer for a proposed stay. Conflicts lists every
// stored booking the stay overlaps and how.
type Availability struct {
	Available bool              `json:"available"`
	Outcome   string            `json:"outcome"`
	Errors    map[string]string `json:"errors"`
	Conflicts []conflict.Entry  `json:"conflicts"`
}

func New(baseURL, apiKey, apiExtra string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache enables caching of spot reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// AsUser returns a copy that acts on behalf of userID.
func (c *Client) AsUser(userID int64) *Client {
	cp := *c
	cp.userID = userID
	return &cp
}

func (c *Client) GetSpot(ctx context.Context, id int64) (*models.Spot, error) {
	var spot models.Spot
	cacheKey := fmt.Sprintf("client:spot:%d", id)
	if c.readCache(ctx, cacheKey, &spot) {
		return &spot, nil
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/spots/%d", id), nil, &spot); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, spot)
	return &spot, nil
}

func (c *Client) SearchSpots(ctx context.Context, filter models.SpotFilter) ([]*models.Spot, error) {
	q := filterQuery(filter)
	cacheKey := "client:spots:" + q
	var wrap struct {
		Spots []*models.Spot `json:"Spots"`
	}
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Spots, nil
	}

	path := "/api/v1/spots"
	if q != "" {
		path += "?" + q
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Spots, nil
}

// CheckAvailability is never cached; bookings change underneath it.
func (c *Client) CheckAvailability(ctx context.Context, spotID int64, start, end models.Date) (*Availability, error) {
	body := map[string]models.Date{"startDate": start, "endDate": end}
	var out Availability
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/spots/%d/availability", spotID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBooking(ctx context.Context, spotID int64, start, end models.Date) (*models.Booking, error) {
	body := map[string]models.Date{"startDate": start, "endDate": end}
	var out models.Booking
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/spots/%d/bookings", spotID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyBookings(ctx context.Context) ([]*models.Booking, error) {
	var wrap struct {
		Bookings []*models.Booking `json:"Bookings"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/bookings/current", nil, &wrap); err != nil {
		return nil, err
	}
	return wrap.Bookings, nil
}

func filterQuery(f models.SpotFilter) string {
	v := url.Values{}
	set := func(name string, p *float64) {
		if p != nil {
			v.Set(name, strconv.FormatFloat(*p, 'f', -1, 64))
		}
	}
	set("minLat", f.MinLat)
	set("maxLat", f.MaxLat)
	set("minLng", f.MinLng)
	set("maxLng", f.MaxLng)
	set("minPrice", f.MinPrice)
	set("maxPrice", f.MaxPrice)
	return v.Encode()
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
	if c.userID != 0 {
		req.Header.Set("x-user-id", strconv.FormatInt(c.userID, 10))
	}
}
