package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
	"golang.org/x/time/rate"
)

// StoriesPath is the feed proxy endpoint serving a snapshot document.
const StoriesPath = "/api/stories"

// FeedClient fetches feed snapshots from the feed proxy.
type FeedClient struct {
	api     *APIService
	limiter *rate.Limiter
}

// NewFeedClient creates a FeedClient for the proxy at baseURL.
// requestsPerSecond <= 0 disables throttling.
func NewFeedClient(baseURL string, client *http.Client, requestsPerSecond float64) *FeedClient {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &FeedClient{
		api:     NewAPIService(baseURL, client),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *FeedClient) Name() string { return c.api.BaseURL() + StoriesPath }

// Fetch waits for the rate limiter, then downloads and decodes the snapshot.
func (c *FeedClient) Fetch(ctx context.Context) (*models.Fixture, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := c.api.Get(ctx, StoriesPath)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	fixture, err := models.ParseFixture(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFeed, err)
	}
	return fixture, nil
}
