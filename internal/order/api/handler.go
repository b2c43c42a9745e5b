package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	"ms-booking/internal/utils"
)

type Handler struct {
	OrderService *order.Service
	Logger       *logger.Logger
}

func NewHandler(orderService *order.Service, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, Logger: log}
}

// CreateOrder handles POST /api/v1/orders. The authenticated user arrives
// in X-User-ID; authentication itself lives in the excluded gateway.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "Missing user identity", "X-User-ID header required")
		return
	}

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: invalid body: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid order request", err.Error())
		return
	}

	result, err := h.OrderService.CreateOrder(r.Context(), userID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not create order", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Order created", result))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	result, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not fetch order", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Order found", result))
}

func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := h.OrderService.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetUserOrders: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not fetch orders", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Orders found", result))
}

// FinalizeOrder handles POST /api/v1/orders/{orderID}/payment, carrying the
// outcome reported by the external payment collaborator.
func (h *Handler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var outcome models.PaymentOutcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		h.Logger.Error("API", fmt.Sprintf("FinalizeOrder: invalid body: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid payment outcome", err.Error())
		return
	}
	outcome.OrderID = orderID

	result, err := h.OrderService.Finalize(r.Context(), orderID, outcome)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("FinalizeOrder: %v", err))
		h.writeError(w, utils.HTTPStatus(err), "Could not finalize order", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Order finalized", result))
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
