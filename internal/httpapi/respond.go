package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"enginefleet/internal/apperr"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errBody is the one error shape every endpoint returns, matching the
// external HTTP contract: {"detail": "..."}.
type errBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errBody{Detail: detail})
}

// writeAppErr maps an apperr.Kind to its HTTP status per §7 and writes
// the error body. The detail text is the wrapped error's own message,
// not apperr's "op: message" form — that prefix is for logs, not the
// external HTTP contract. Unrecognized errors are reported as 500.
func writeAppErr(w http.ResponseWriter, err error) {
	writeError(w, statusForKind(apperr.KindOf(err)), errDetail(err))
}

// errDetail extracts the wrapped error's own message from an
// *apperr.Error, not apperr's "op: message" form — that prefix is for
// logs, not the external HTTP contract.
func errDetail(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindCapacity:
		return http.StatusConflict
	case apperr.KindDuplicate:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRuntimeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
