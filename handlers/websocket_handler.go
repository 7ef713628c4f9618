package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/tournament-hub/live"
	"github.com/Dosada05/tournament-hub/services"
)

type WebSocketHandler struct {
	hub         *live.Hub
	tournaments *services.TournamentService
	upgrader    *websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from the given origins; an empty list
// or "*" accepts any origin.
func NewWebSocketHandler(hub *live.Hub, tournaments *services.TournamentService, allowedOrigins []string) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:         hub,
		tournaments: tournaments,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeWs handles GET /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.tournaments.Get(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := h.hub.Serve(h.upgrader, w, r, id); err != nil {
		slog.WarnContext(r.Context(), "WebSocket upgrade failed", slog.Int("tournament_id", id), slog.Any("error", err))
	}
}
