package utils

import (
	"errors"
	"net/http"

	"ms-booking/internal/errs"
)

// HTTPStatus maps booking errors onto response codes. Denial reasons travel
// verbatim in the response body; this only picks the code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrPaymentAmountMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrInsufficientCapacity),
		errors.Is(err, errs.ErrPerOrderLimitExceeded),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrAlreadyCancelled),
		errors.Is(err, errs.ErrCannotCancelUsedTicket):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
