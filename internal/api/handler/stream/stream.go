// internal/api/handler/stream/stream.go
package stream

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/avrabe/mcp-loxone/internal/api/response"
	"github.com/avrabe/mcp-loxone/internal/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHeartbeat is used when the configured interval is not positive.
const DefaultHeartbeat = 15 * time.Second

var errStreamingUnsupported = errors.New("streaming unsupported")

// Tracker counts connected stream clients.
type Tracker interface {
	StreamOpened()
	StreamClosed()
}

// Handler serves the long-lived event stream.
type Handler struct {
	heartbeat    time.Duration
	messagesPath string
	tracker      Tracker
	logger       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]struct{}
}

// NewHandler creates a new stream handler. tracker may be nil.
func NewHandler(heartbeat time.Duration, messagesPath string, tracker Tracker, logger *zap.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		heartbeat:    heartbeat,
		messagesPath: messagesPath,
		tracker:      tracker,
		logger:       logger.Named("stream"),
		sessions:     make(map[string]struct{}),
	}
}

// ServeHTTP announces the session endpoint, then sends heartbeats until the
// client disconnects or the server shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	sessionID := uuid.NewString()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if h.tracker != nil {
		h.tracker.StreamOpened()
		defer h.tracker.StreamClosed()
	}

	h.openSession(sessionID)
	defer h.closeSession(sessionID)

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("client connected")
	defer log.Info("client disconnected")

	if _, err := fmt.Fprintf(w, "event: endpoint\ndata: %s?session_id=%s\n\n", h.messagesPath, sessionID); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				log.Debug("heartbeat write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) openSession(id string) {
	h.mu.Lock()
	h.sessions[id] = struct{}{}
	h.mu.Unlock()
}

func (h *Handler) closeSession(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// HasSession reports whether a stream with this session ID is open.
func (h *Handler) HasSession(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[id]
	return ok
}

// Messages answers posts to the endpoint announced on the stream. The
// session is checked; message framing is not implemented, so known sessions
// get 501.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	switch {
	case id == "":
		response.Error(w, http.StatusBadRequest, core.ErrSessionRequired)
	case !h.HasSession(id):
		response.Error(w, http.StatusNotFound, core.ErrSessionNotFound)
	default:
		response.Error(w, http.StatusNotImplemented, core.ErrNotImplemented)
	}
}
