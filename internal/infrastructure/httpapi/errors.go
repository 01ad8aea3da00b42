package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apporder "shopcore/internal/application/order"
	"shopcore/internal/domain/catalog"
	"shopcore/internal/domain/inventory"
	"shopcore/internal/domain/order"
	"shopcore/internal/domain/payment"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apporder.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, order.ErrNotDeletable),
		errors.Is(err, apporder.ErrNotPending):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, apporder.ErrRejected),
		errors.Is(err, order.ErrNoLines),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidAmount),
		errors.Is(err, inventory.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, payment.ErrGateway):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
