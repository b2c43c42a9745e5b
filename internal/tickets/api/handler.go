package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/logger"
	"ms-booking/internal/tickets"
	"ms-booking/internal/utils"
)

type Handler struct {
	TicketService *tickets.Service
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.Service, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

// ValidateTicket handles GET /api/v1/tickets/{ticketID}/validate. Read-only
// entry check; an invalid ticket is a 200 with valid=false, not an error.
func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	result, err := h.TicketService.Validate(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ValidateTicket: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not validate ticket", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(result.Reason, result))
}

func (h *Handler) UseTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.TicketService.MarkUsed(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UseTicket: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not mark ticket as used", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket marked as used", ticket))
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.TicketService.Cancel(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelTicket: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not cancel ticket", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket cancelled", ticket))
}

func (h *Handler) GetTicketsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ticketList, err := h.TicketService.GetTicketsByOrder(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketsByOrder: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not fetch tickets", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Tickets found", ticketList))
}

func (h *Handler) GetTicketsByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	ticketList, err := h.TicketService.GetTicketsByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketsByUser: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not fetch tickets", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Tickets found", ticketList))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, detail string) {
	h.writeJSON(w, status, utils.ErrorResponse(message, detail))
}
