package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// GroupSource loads the groups a reopened session plays.
type GroupSource func(ctx context.Context) ([]models.AuthorGroup, error)

// JumpRequest is the body of POST /session/jump. AuthorID, when set, takes precedence over the indices.
type JumpRequest struct {
	AuthorIndex int    `json:"authorIndex"`
	ItemIndex   int    `json:"itemIndex"`
	AuthorID    string `json:"authorId,omitempty"`
}

// OpenRequest is the optional body of POST /session/open.
type OpenRequest struct {
	AuthorID string `json:"authorId,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
}

// DurationRequest is the body of POST /session/duration, sent by a media decoder once it knows an
// item's natural length.
type DurationRequest struct {
	ItemID     string `json:"itemId"`
	DurationMS int64  `json:"durationMs"`
}

// SessionHandler exposes a [playback.Sequencer] over HTTP.
//
// Every command responds with the resulting [playback.Snapshot]. GET /session/stream upgrades to a
// websocket that pushes a snapshot on every state change.
type SessionHandler struct {
	seq      *playback.Sequencer
	source   GroupSource
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a SessionHandler for seq.
func NewSessionHandler(seq *playback.Sequencer, source GroupSource, logger *log.Logger) *SessionHandler {
	return &SessionHandler{
		seq:    seq,
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Remote controls run on the same machine or LAN; any origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SessionHandler) Routes() []string {
	return []string{"/session", "/session/"}
}

// ServeHTTP dispatches on the path segment after /session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/session"), "/")

	if r.Method == http.MethodGet {
		switch action {
		case "":
			writeJSON(w, http.StatusOK, h.seq.Snapshot())
		case "stream":
			h.stream(w, r)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", shared.ErrNotFound, r.URL.Path))
		}
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	switch action {
	case "next":
		h.seq.Next()
	case "prev":
		h.seq.Prev()
	case "pause":
		h.seq.Pause()
	case "resume":
		h.seq.Resume()
	case "close":
		h.seq.Close()
	case "jump":
		if err := h.jump(r); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "duration":
		if err := h.duration(r); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "open":
		if err := h.open(r); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: unknown command %q", shared.ErrNotFound, action))
		return
	}

	writeJSON(w, http.StatusOK, h.seq.Snapshot())
}

func (h *SessionHandler) jump(r *http.Request) error {
	var req JumpRequest
	if err := decodeBody(r, &req, true); err != nil {
		return err
	}
	if req.AuthorID != "" {
		return h.seq.JumpToAuthor(req.AuthorID)
	}
	return h.seq.JumpTo(req.AuthorIndex, req.ItemIndex)
}

// duration forwards a reported length to the sequencer. Reports for an item that is no longer on
// screen are accepted and ignored.
func (h *SessionHandler) duration(r *http.Request) error {
	var req DurationRequest
	if err := decodeBody(r, &req, true); err != nil {
		return err
	}
	if req.ItemID == "" {
		return fmt.Errorf("%w: itemId is required", shared.ErrInvalidArgument)
	}
	if req.DurationMS <= 0 {
		return fmt.Errorf("%w: durationMs must be positive, got %d", shared.ErrInvalidArgument, req.DurationMS)
	}

	h.seq.ReportDuration(req.ItemID, time.Duration(req.DurationMS)*time.Millisecond)
	return nil
}

func (h *SessionHandler) open(r *http.Request) error {
	if h.source == nil {
		return fmt.Errorf("%w: no feed configured", shared.ErrServiceUnavailable)
	}

	var req OpenRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}

	groups, err := h.source(r.Context())
	if err != nil {
		return err
	}

	authorIndex, itemIndex := playback.Locate(groups, req.AuthorID, req.ItemID)
	h.logger.Info("opening session", "groups", len(groups), "author", authorIndex, "item", itemIndex)
	h.seq.OpenGroups(groups, authorIndex, itemIndex)
	return nil
}

// stream pushes the latest snapshot to a websocket client after every change.
//
// Subscription callbacks only signal; the writer reads the newest snapshot itself, so a slow
// client sees fewer frames instead of stalling the sequencer.
func (h *SessionHandler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	unsubscribe := h.seq.Subscribe(func(playback.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func() bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.seq.Snapshot()); err != nil {
			h.logger.Debug("stream write failed", "error", err)
			return false
		}
		return true
	}

	if !send() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-changed:
			if !send() {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// decodeBody decodes a JSON request body into v. An empty body is an error only when required.
func decodeBody(r *http.Request, v any, required bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && !required:
		return nil
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: request body is required", shared.ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrInvalidFeed):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
