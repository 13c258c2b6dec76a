package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/gorilla/websocket"
)

func testGroups() []models.AuthorGroup {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := func(id, author string) models.MediaItem {
		return models.NewMediaItem(id, author, models.KindImage, "https://cdn.example.com/"+id, 0, created, time.Time{})
	}
	return []models.AuthorGroup{
		{Author: models.NewAuthor("a", "alice", "Alice", ""), Items: []models.MediaItem{item("i1", "a"), item("i2", "a")}},
		{Author: models.NewAuthor("b", "bob", "Bob", ""), Items: []models.MediaItem{item("i3", "b")}},
	}
}

func newTestSequencer() *playback.Sequencer {
	seq := playback.NewSequencer(playback.Options{Clock: playback.NewManualClock(100 * time.Millisecond)})
	seq.OpenGroups(testGroups(), 0, 0)
	return seq
}

func staticSource(groups []models.AuthorGroup) GroupSource {
	return func(context.Context) ([]models.AuthorGroup, error) { return groups, nil }
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, playback.Snapshot) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var snap playback.Snapshot
	if rec.Code == http.StatusOK && strings.HasPrefix(path, "/session") {
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode snapshot: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, snap
}

func TestSessionHandler(t *testing.T) {
	t.Run("reports the current snapshot", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil)

		rec, snap := do(t, r, http.MethodGet, "/session", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if snap.Status != playback.StatusPlaying || snap.AuthorID != "a" || snap.ItemID != "i1" {
			t.Errorf("snapshot = %+v", snap)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
	})

	commands := []struct {
		name      string
		setup     func(*playback.Sequencer)
		path      string
		wantG     int
		wantI     int
		wantPause bool
		wantClose bool
	}{
		{name: "next", path: "/session/next", wantG: 0, wantI: 1},
		{name: "prev from second item", setup: func(s *playback.Sequencer) { s.Next() }, path: "/session/prev", wantG: 0, wantI: 0},
		{name: "pause", path: "/session/pause", wantPause: true},
		{name: "resume", setup: func(s *playback.Sequencer) { s.Pause() }, path: "/session/resume"},
		{name: "close", path: "/session/close", wantClose: true},
		{name: "jump by index", path: "/session/jump", wantG: 1, wantI: 0},
	}

	for _, tt := range commands {
		t.Run(tt.name, func(t *testing.T) {
			seq := newTestSequencer()
			if tt.setup != nil {
				tt.setup(seq)
			}
			r := NewRouter(seq, nil, shared.ServerConfig{}, nil)

			body := ""
			if strings.HasSuffix(tt.path, "jump") {
				body = `{"authorIndex":1,"itemIndex":0}`
			}
			rec, snap := do(t, r, http.MethodPost, tt.path, body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if snap.Closed != tt.wantClose {
				t.Fatalf("closed = %v, want %v", snap.Closed, tt.wantClose)
			}
			if tt.wantClose {
				return
			}
			if snap.AuthorIndex != tt.wantG || snap.ItemIndex != tt.wantI || snap.Paused != tt.wantPause {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}

	t.Run("jump by author id", func(t *testing.T) {
		seq := newTestSequencer()
		r := NewRouter(seq, nil, shared.ServerConfig{}, nil)

		rec, snap := do(t, r, http.MethodPost, "/session/jump", `{"authorId":"b"}`)
		if rec.Code != http.StatusOK || snap.AuthorIndex != 1 {
			t.Errorf("status = %d, snapshot = %+v", rec.Code, snap)
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"author out of range", `{"authorIndex":5,"itemIndex":0}`},
		{"item out of range", `{"authorIndex":1,"itemIndex":1}`},
		{"unknown author", `{"authorId":"zed"}`},
		{"malformed body", `{"authorIndex":`},
		{"missing body", ``},
	}

	for _, tt := range invalid {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			seq := newTestSequencer()
			seq.Next()
			r := NewRouter(seq, nil, shared.ServerConfig{}, nil)

			rec, _ := do(t, r, http.MethodPost, "/session/jump", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if snap := seq.Snapshot(); snap.AuthorIndex != 0 || snap.ItemIndex != 1 {
				t.Errorf("state changed to (%d,%d)", snap.AuthorIndex, snap.ItemIndex)
			}
		})
	}

	durations := []struct {
		name      string
		body      string
		wantCode  int
		wantI     int
		wantRatio float64
	}{
		{name: "longer duration rescales progress", body: `{"itemId":"i1","durationMs":2000}`, wantCode: http.StatusOK, wantRatio: 0.5},
		{name: "duration already elapsed advances", body: `{"itemId":"i1","durationMs":500}`, wantCode: http.StatusOK, wantI: 1},
		{name: "other item is ignored", body: `{"itemId":"i3","durationMs":500}`, wantCode: http.StatusOK, wantRatio: 0.2},
		{name: "missing item id", body: `{"durationMs":500}`, wantCode: http.StatusBadRequest, wantRatio: 0.2},
		{name: "non-positive duration", body: `{"itemId":"i1","durationMs":0}`, wantCode: http.StatusBadRequest, wantRatio: 0.2},
		{name: "missing body", body: ``, wantCode: http.StatusBadRequest, wantRatio: 0.2},
	}

	for _, tt := range durations {
		t.Run("duration "+tt.name, func(t *testing.T) {
			clock := playback.NewManualClock(100 * time.Millisecond)
			seq := playback.NewSequencer(playback.Options{Clock: clock, ImageDuration: 5 * time.Second})
			seq.OpenGroups(testGroups(), 0, 0)
			clock.Advance(10)
			r := NewRouter(seq, nil, shared.ServerConfig{}, nil)

			rec, _ := do(t, r, http.MethodPost, "/session/duration", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			snap := seq.Snapshot()
			if snap.AuthorIndex != 0 || snap.ItemIndex != tt.wantI {
				t.Errorf("position = (%d,%d), want (0,%d)", snap.AuthorIndex, snap.ItemIndex, tt.wantI)
			}
			if diff := snap.ElapsedRatio - tt.wantRatio; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ratio = %v, want %v", snap.ElapsedRatio, tt.wantRatio)
			}
		})
	}

	t.Run("open without a source is unavailable", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil)

		rec, _ := do(t, r, http.MethodPost, "/session/open", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("open restarts at the requested story", func(t *testing.T) {
		seq := newTestSequencer()
		seq.Close()
		r := NewRouter(seq, staticSource(testGroups()), shared.ServerConfig{}, nil)

		rec, snap := do(t, r, http.MethodPost, "/session/open", `{"authorId":"a","itemId":"i2"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if snap.Closed || snap.AuthorIndex != 0 || snap.ItemIndex != 1 {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("open with unknown ids clamps to the start", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), staticSource(testGroups()), shared.ServerConfig{}, nil)

		_, snap := do(t, r, http.MethodPost, "/session/open", `{"itemId":"missing"}`)
		if snap.AuthorIndex != 0 || snap.ItemIndex != 0 {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("open reports source errors", func(t *testing.T) {
		source := func(context.Context) ([]models.AuthorGroup, error) {
			return nil, errors.Join(shared.ErrInvalidFeed, errors.New("truncated"))
		}
		r := NewRouter(newTestSequencer(), source, shared.ServerConfig{}, nil)

		rec, _ := do(t, r, http.MethodPost, "/session/open", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil)

		rec, _ := do(t, r, http.MethodPost, "/session/rewind", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil)

		rec, _ := do(t, r, http.MethodDelete, "/session/next", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		r := NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil)

		rec, _ := do(t, r, http.MethodGet, "/healthz", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		rec, _ = do(t, r, http.MethodPost, "/healthz", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /healthz status = %d, want 405", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("rate limit throttles commands only", func(t *testing.T) {
		seq := newTestSequencer()
		r := NewRouter(seq, nil, shared.ServerConfig{CommandsPerSecond: 0.001, Burst: 1}, nil)

		if rec, _ := do(t, r, http.MethodPost, "/session/next", ""); rec.Code != http.StatusOK {
			t.Fatalf("first command status = %d", rec.Code)
		}
		rec, _ := do(t, r, http.MethodPost, "/session/next", "")
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("second command status = %d, want 429", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After")
		}
		if rec, _ := do(t, r, http.MethodGet, "/session", ""); rec.Code != http.StatusOK {
			t.Errorf("read status = %d, want 200", rec.Code)
		}
		if snap := seq.Snapshot(); snap.ItemIndex != 1 {
			t.Errorf("throttled command mutated state: %+v", snap)
		}
	})

	t.Run("recover turns panics into 500", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recover(shared.NewLogger(io.Discard)))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("middleware applies in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("outer"), mark("inner"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "outer,inner,handler" {
			t.Errorf("order = %v", order)
		}
	})
}

func TestStream(t *testing.T) {
	seq := newTestSequencer()
	srv := httptest.NewServer(NewRouter(seq, nil, shared.ServerConfig{}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap playback.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if snap.ItemID != "i1" {
		t.Errorf("initial snapshot = %+v", snap)
	}

	resp, err := http.Post(srv.URL+"/session/next", "application/json", nil)
	if err != nil {
		t.Fatalf("post next: %v", err)
	}
	resp.Body.Close()

	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read pushed snapshot: %v", err)
	}
	if snap.ItemID != "i2" || snap.ItemIndex != 1 {
		t.Errorf("pushed snapshot = %+v", snap)
	}
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ln.Addr().String(), NewRouter(newTestSequencer(), nil, shared.ServerConfig{}, nil), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
