package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/services"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// SubmitHandler handles POST /api/registrations. The proof travels as a
// base64 string or data URL in the JSON body.
func (h *RegistrationHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input services.SubmitRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.UserID = userID
	reg, err := h.registrations.Submit(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"registration": reg})
}

func (h *RegistrationHandler) MineHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	regs, err := h.registrations.ListForUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"registrations": regs})
}

func (h *RegistrationHandler) PendingHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	regs, err := h.registrations.ListPending(r.Context(), actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"registrations": regs})
}

const (
	decisionApprove = "approve"
	decisionReject  = "reject"
)

type decisionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// DecisionHandler handles POST /api/admin/registrations/{registrationID}/decision.
func (h *RegistrationHandler) DecisionHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input decisionRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var reg *models.Registration
	switch input.Action {
	case decisionApprove:
		if input.Reason != "" {
			badRequestResponse(w, r, errors.New("reason is only accepted when rejecting"))
			return
		}
		reg, err = h.registrations.Approve(r.Context(), actorID, id)
	case decisionReject:
		reg, err = h.registrations.Reject(r.Context(), actorID, id, input.Reason)
	default:
		badRequestResponse(w, r, fmt.Errorf("action must be %q or %q", decisionApprove, decisionReject))
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"registration": reg})
}
