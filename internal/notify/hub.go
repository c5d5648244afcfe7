package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/condohub/condo-backend/internal/domain"
)

// EventReviewNeeded is the event name of review frames.
const EventReviewNeeded = "review.needed"

const (
	defaultWriteTimeout = 5 * time.Second

	// queueSize is how many frames a subscriber may fall behind before it
	// is dropped.
	queueSize = 16
)

// Frame is what subscribers receive.
type Frame struct {
	Event   string `json:"event"`
	Seq     uint64 `json:"seq"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	id         string
	buildingID string
	ws         *websocket.Conn
	out        chan Frame
	done       chan struct{}
	closeOnce  sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.ws != nil {
			_ = s.ws.Close()
		}
	})
}

// Hub tracks dashboard WebSocket connections per building and pushes review
// notices to them.
//
// Notify never writes to a socket itself: each subscriber owns a bounded
// queue drained by its own writer goroutine, so a stalled dashboard costs
// the caller nothing and is dropped once its queue is full.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
	seq  atomic.Uint64

	WriteTimeout time.Duration
	Logger       *zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Add registers ws as a subscriber of buildingID, starts its writer and
// returns its id.
func (h *Hub) Add(buildingID string, ws *websocket.Conn) string {
	s := &subscriber{
		id:         uuid.NewString(),
		buildingID: buildingID,
		ws:         ws,
		out:        make(chan Frame, queueSize),
		done:       make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
	go h.writeLoop(s)
	return s.id
}

// Remove unregisters and closes a subscriber.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	s, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		s.close()
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Serve registers ws and blocks reading (and discarding) client frames until
// the connection fails, then unregisters it.
func (h *Hub) Serve(buildingID string, ws *websocket.Conn) {
	id := h.Add(buildingID, ws)
	defer h.Remove(id)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify implements Notifier. It only enqueues: a subscriber whose queue is
// full is dropped instead of waited on.
func (h *Hub) Notify(ctx context.Context, n domain.ReviewNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame := Frame{Event: EventReviewNeeded, Seq: h.seq.Add(1), Payload: n}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if s.buildingID == n.BuildingID {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.out <- frame:
		case <-s.done:
		default:
			h.logger().Warn().Str("subscriber", s.id).Msg("review queue full; dropping subscriber")
			h.Remove(s.id)
		}
	}
	return nil
}

func (h *Hub) writeLoop(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		case f := <-s.out:
			_ = s.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
			if err := s.ws.WriteJSON(f); err != nil {
				h.logger().Warn().Err(err).Str("subscriber", s.id).Msg("review push failed; dropping subscriber")
				h.Remove(s.id)
				return
			}
		}
	}
}

func (h *Hub) writeTimeout() time.Duration {
	if h.WriteTimeout > 0 {
		return h.WriteTimeout
	}
	return defaultWriteTimeout
}

func (h *Hub) logger() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return &log.Logger
}
