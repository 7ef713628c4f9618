package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-hub/services"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type messageRequest struct {
	ToUserID int    `json:"to_user_id,omitempty"`
	Body     string `json:"body"`
}

// SendHandler handles POST /api/messages, a user writing to the admins.
func (h *MessageHandler) SendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input messageRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	msg, err := h.messages.SendToAdmin(r.Context(), userID, input.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"message": msg})
}

func (h *MessageHandler) ThreadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.UserThread(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"messages": msgs})
}

func (h *MessageHandler) AdminInboxHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.AdminInbox(r.Context(), actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"messages": msgs})
}

// ReplyHandler handles POST /api/admin/messages.
func (h *MessageHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input messageRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	msg, err := h.messages.Reply(r.Context(), actorID, input.ToUserID, input.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"message": msg})
}
