package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-hub/services"
)

type BroadcastHandler struct {
	broadcasts *services.BroadcastService
}

func NewBroadcastHandler(broadcasts *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts}
}

// SendHandler handles POST /api/admin/broadcasts.
func (h *BroadcastHandler) SendHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input services.BroadcastInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	delivered, err := h.broadcasts.Broadcast(r.Context(), actorID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"delivered": delivered})
}

func (h *BroadcastHandler) InboxHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	inbox, err := h.broadcasts.Inbox(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"broadcasts": inbox})
}

func (h *BroadcastHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "broadcastID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.broadcasts.MarkRead(r.Context(), userID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
