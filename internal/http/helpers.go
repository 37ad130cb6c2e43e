package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"deyn/internal/core"
)

// maxBodyBytes caps request bodies; every payload here is tiny.
const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP codes. A
// referential violation is a conflict the user must resolve, never
// something to retry; an unavailable store is a transient 503.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEntityInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, core.ErrInvalidPayday),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrNegativePrincipal),
		errors.Is(err, core.ErrNegativeRate),
		errors.Is(err, core.ErrRemainingExceedsTotal),
		errors.Is(err, core.ErrExhaustedButActive),
		errors.Is(err, core.ErrRelationshipFactor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A second document in the body is a malformed request.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
