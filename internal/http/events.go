package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"inspection-service/internal/domain/inspection"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventMessage is what subscribers of a session receive for every applied
// event.
type EventMessage struct {
	SessionID uuid.UUID        `json:"session_id"`
	Event     string           `json:"event"`
	Payload   inspection.Event `json:"payload"`
	At        time.Time        `json:"at"`
}

type subscriber struct {
	conn    *websocket.Conn
	session uuid.UUID
}

type outgoing struct {
	session uuid.UUID
	data    []byte
}

// EventHub fans session events out to websocket subscribers of that session.
type EventHub struct {
	clients    map[*subscriber]struct{}
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan outgoing
	done       chan struct{}
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewEventHub(log zerolog.Logger) *EventHub {
	return &EventHub{
		clients:    make(map[*subscriber]struct{}),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan outgoing, 64),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "event_hub").Logger(),
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *EventHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("session_id", c.session.String()).Int("total", total).Msg("subscriber connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("session_id", c.session.String()).Int("total", total).Msg("subscriber disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.session != msg.session {
					continue
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					h.log.Warn().Err(err).Str("session_id", c.session.String()).Msg("failed to write event")
					c.conn.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues ev for the subscribers of sessionID. Events are dropped when
// the queue is full.
func (h *EventHub) Publish(sessionID uuid.UUID, ev inspection.Event) {
	data, err := json.Marshal(EventMessage{
		SessionID: sessionID,
		Event:     ev.EventName(),
		Payload:   ev,
		At:        time.Now().UTC(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("event", ev.EventName()).Msg("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- outgoing{session: sessionID, data: data}:
	default:
		h.log.Warn().Str("session_id", sessionID.String()).Str("event", ev.EventName()).Msg("event queue full, dropping event")
	}
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and keeps the subscriber registered until the
// client goes away.
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &subscriber{conn: conn, session: sessionID}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("websocket read error")
				}
				return
			}
		}
	}()
	return nil
}
