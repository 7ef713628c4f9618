// Package live pushes tournament events to websocket viewers, one room per
// tournament.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Event is the frame written to viewers.
type Event struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[int]map[*Client]bool
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[int]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns room membership until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.tournamentID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.tournamentID] = room
			}
			room[client] = true
			h.mu.Unlock()
			h.logger.Debug("Viewer joined", slog.Int("tournament_id", client.tournamentID), slog.Int("viewers", len(room)))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, room := range h.rooms {
				for client := range room {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	room, ok := h.rooms[client.tournamentID]
	if !ok || !room[client] {
		return
	}
	client.close()
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.tournamentID)
	}
}

// Viewers returns how many clients watch a tournament.
func (h *Hub) Viewers(tournamentID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}

// Publish sends an event to every viewer of the tournament. Slow viewers
// whose buffer is full miss the event.
func (h *Hub) Publish(tournamentID int, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[tournamentID]
	if !ok {
		return
	}
	frame, err := json.Marshal(Event{Type: event, TournamentID: tournamentID, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to encode live event", slog.String("event", event), slog.Any("error", err))
		return
	}
	for client := range room {
		if !client.enqueue(frame) {
			h.logger.Warn("Viewer buffer full, event dropped",
				slog.Int("tournament_id", tournamentID), slog.String("event", event))
		}
	}
}
