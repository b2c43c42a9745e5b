package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ms-booking/internal/inventory"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	InventoryService *inventory.Service
	Logger           *logger.Logger
}

func NewHandler(inventoryService *inventory.Service, log *logger.Logger) *Handler {
	return &Handler{InventoryService: inventoryService, Logger: log}
}

// CheckAvailability handles
// GET /api/v1/ticket-types/{ticketTypeID}/availability?quantity=N.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ticketTypeID := chi.URLParam(r, "ticketTypeID")

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "Invalid quantity", "quantity must be a positive integer")
			return
		}
		quantity = parsed
	}

	availability, err := h.InventoryService.CheckAvailability(r.Context(), ticketTypeID, quantity)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckAvailability: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not check availability", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Availability checked", availability))
}

type createTicketTypeRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	MaxPerOrder int             `json:"max_per_order"`
}

// CreateTicketType handles POST /api/v1/events/{eventID}/ticket-types.
func (h *Handler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req createTicketTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTicketType: invalid body: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid ticket type request", err.Error())
		return
	}

	created, err := h.InventoryService.CreateTicketType(r.Context(), models.TicketType{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		MaxPerOrder: req.MaxPerOrder,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTicketType: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not create ticket type", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket type created", created))
}

// UpdateTicketType handles PATCH /api/v1/ticket-types/{ticketTypeID}.
// Omitted fields are left untouched.
func (h *Handler) UpdateTicketType(w http.ResponseWriter, r *http.Request) {
	ticketTypeID := chi.URLParam(r, "ticketTypeID")

	var update models.TicketTypeUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateTicketType: invalid body: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid ticket type update", err.Error())
		return
	}

	updated, err := h.InventoryService.UpdateTicketType(r.Context(), ticketTypeID, update)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateTicketType: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not update ticket type", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket type updated", updated))
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
