// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/choubo-app/choubo/internal/ledger/shared"
	"github.com/choubo-app/choubo/internal/periods"
)

// RespondError maps ledger error kinds to HTTP responses using RFC7807.
// Consistency violations deliberately surface as 500: they indicate broken
// stored data, not a bad request.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrReference):
		Problem(w, http.StatusUnprocessableEntity, "Unknown Reference", err.Error())
	case errors.Is(err, shared.ErrState):
		Problem(w, http.StatusConflict, "Period Closed", err.Error())
	case errors.Is(err, periods.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConsistency):
		Problem(w, http.StatusInternalServerError, "Ledger Inconsistency", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
