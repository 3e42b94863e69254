package handlers

import (
	"errors"
	"net/http"

	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/services"
)

// writeServiceError maps the billing service's sentinel errors onto HTTP
// codes; anything unknown is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrClientNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrCreditNoteNotFound),
		errors.Is(err, services.ErrSlipNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrInvalidBase),
		errors.Is(err, services.ErrInvalidRate),
		errors.Is(err, services.ErrAmountExceedsInvoice),
		errors.Is(err, services.ErrSlipAlreadyBilled):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
