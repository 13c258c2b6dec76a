package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/storyx/internal/shared"
)

func TestRemoteClient(t *testing.T) {
	newServer := func(t *testing.T) *httptest.Server {
		t.Helper()
		state := RemoteState{Status: "playing"}

		mux := http.NewServeMux()
		mux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(state)
		})
		mux.HandleFunc("POST /session/next", func(w http.ResponseWriter, r *http.Request) {
			state.ItemIndex++
			json.NewEncoder(w).Encode(state)
		})
		mux.HandleFunc("POST /session/pause", func(w http.ResponseWriter, r *http.Request) {
			state.Paused = true
			state.Status = "paused"
			json.NewEncoder(w).Encode(state)
		})
		mux.HandleFunc("POST /session/jump", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ AuthorIndex, ItemIndex int }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthorIndex > 5 {
				http.Error(w, "invalid position", http.StatusBadRequest)
				return
			}
			state.AuthorIndex, state.ItemIndex = req.AuthorIndex, req.ItemIndex
			json.NewEncoder(w).Encode(state)
		})

		mux.HandleFunc("POST /session/duration", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ItemID     string `json:"itemId"`
				DurationMS int64  `json:"durationMs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID != "v1" || req.DurationMS != 12500 {
				http.Error(w, "unexpected report", http.StatusBadRequest)
				return
			}
			state.ElapsedRatio = 0.25
			json.NewEncoder(w).Encode(state)
		})

		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}

	t.Run("State", func(t *testing.T) {
		client := NewRemoteClient(newServer(t).URL, nil)

		state, err := client.State(context.Background())
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.Status != "playing" {
			t.Errorf("expected playing, got %s", state.Status)
		}
	})

	t.Run("Command", func(t *testing.T) {
		client := NewRemoteClient(newServer(t).URL, nil)

		state, err := client.Command(context.Background(), "next")
		if err != nil {
			t.Fatalf("Command(next) error = %v", err)
		}
		if state.ItemIndex != 1 {
			t.Errorf("expected item index 1, got %d", state.ItemIndex)
		}

		state, err = client.Command(context.Background(), "pause")
		if err != nil {
			t.Fatalf("Command(pause) error = %v", err)
		}
		if !state.Paused {
			t.Error("expected paused state")
		}
	})

	t.Run("Unknown Action", func(t *testing.T) {
		client := NewRemoteClient("http://example.com", nil)
		if _, err := client.Command(context.Background(), "rewind"); err == nil {
			t.Error("expected error for unknown action")
		}
	})

	t.Run("Jump", func(t *testing.T) {
		client := NewRemoteClient(newServer(t).URL, nil)

		state, err := client.Jump(context.Background(), 2, 1)
		if err != nil {
			t.Fatalf("Jump() error = %v", err)
		}
		if state.AuthorIndex != 2 || state.ItemIndex != 1 {
			t.Errorf("unexpected state %+v", state)
		}

		if _, err := client.Jump(context.Background(), 9, 0); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("ReportDuration", func(t *testing.T) {
		client := NewRemoteClient(newServer(t).URL, nil)

		state, err := client.ReportDuration(context.Background(), "v1", 12500*time.Millisecond)
		if err != nil {
			t.Fatalf("ReportDuration() error = %v", err)
		}
		if state.ElapsedRatio != 0.25 {
			t.Errorf("unexpected state %+v", state)
		}

		if _, err := client.ReportDuration(context.Background(), "v2", time.Second); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
