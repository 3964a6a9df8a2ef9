package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/admission"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a request body into v. An empty body is treated as
// a no-op so GET-shaped callers don't have to special-case it.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusForError maps the ledger's error taxonomy to an HTTP status
// code, per the admin-endpoint contract: invalid input is 400,
// insufficient credit and missing authorization are 403, anything the
// store reports as missing is 404, everything else is 500.
func statusForError(err error) int {
	var refused *admission.RefusedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &refused), ledger.IsInsufficientCredit(err), errors.Is(err, ledger.ErrAuthRequired):
		return http.StatusForbidden
	case ledger.IsInputInvalid(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeLedgerError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}
