package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// RemoteActions are the argument-free commands accepted by the remote control surface.
var RemoteActions = []string{"next", "prev", "pause", "resume", "close"}

// RemoteState is the subset of a playback snapshot the remote client reads back.
type RemoteState struct {
	AuthorIndex  int     `json:"authorIndex"`
	ItemIndex    int     `json:"itemIndex"`
	ElapsedRatio float64 `json:"elapsedRatio"`
	Paused       bool    `json:"paused"`
	Closed       bool    `json:"closed"`
	Status       string  `json:"status"`
	AuthorID     string  `json:"authorId"`
	ItemID       string  `json:"itemId"`
}

// RemoteClient drives a running storyx server.
type RemoteClient struct {
	api *APIService
}

// NewRemoteClient creates a RemoteClient for the server at baseURL.
func NewRemoteClient(baseURL string, client *http.Client) *RemoteClient {
	return &RemoteClient{api: NewAPIService(baseURL, client)}
}

// State returns the server's current snapshot.
func (c *RemoteClient) State(ctx context.Context) (*RemoteState, error) {
	resp, err := c.api.Get(ctx, "/session")
	if err != nil {
		return nil, err
	}
	return decodeState(resp)
}

// Command sends one of [RemoteActions] and returns the resulting snapshot.
func (c *RemoteClient) Command(ctx context.Context, action string) (*RemoteState, error) {
	if !slices.Contains(RemoteActions, action) {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	resp, err := c.api.Post(ctx, "/session/"+action, nil)
	if err != nil {
		return nil, err
	}
	return decodeState(resp)
}

// Jump seeks the server's session to an explicit position.
func (c *RemoteClient) Jump(ctx context.Context, authorIndex, itemIndex int) (*RemoteState, error) {
	body, err := json.Marshal(map[string]int{"authorIndex": authorIndex, "itemIndex": itemIndex})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jump request: %w", err)
	}

	resp, err := c.api.Post(ctx, "/session/jump", body)
	if err != nil {
		return nil, err
	}
	return decodeState(resp)
}

// ReportDuration tells the server how long itemID actually plays.
func (c *RemoteClient) ReportDuration(ctx context.Context, itemID string, d time.Duration) (*RemoteState, error) {
	body, err := json.Marshal(map[string]any{"itemId": itemID, "durationMs": d.Milliseconds()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode duration report: %w", err)
	}

	resp, err := c.api.Post(ctx, "/session/duration", body)
	if err != nil {
		return nil, err
	}
	return decodeState(resp)
}

func decodeState(resp *APIResponse) (*RemoteState, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var state RemoteState
	if err := resp.Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}
