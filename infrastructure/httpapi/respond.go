// Package httpapi exposes the REST surface: channel management, the
// synchronous history query, health and diagnostics.
package httpapi

import (
	"encoding/json"
	"net/http"

	"backchannel/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code, message := errors.Wire(err)
	writeJSON(w, statusOf(err), map[string]errorBody{
		"error": {Code: code, Message: message},
	})
}

func statusOf(err error) int {
	switch errors.ClassOf(err) {
	case errors.ClassAuthorization:
		code, _ := errors.Wire(err)
		if code == errors.CodeUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.ClassNotFound:
		return http.StatusNotFound
	case errors.ClassInvalidState:
		return http.StatusConflict
	case errors.ClassValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
