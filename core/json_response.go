package core

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
)

// JSONResponse is the envelope of every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any, meta map[string]any) error {
	return writeJSON(w, status, JSONResponse{Data: data, Meta: meta})
}

// NoContent writes a bodiless 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// JSONError writes the client view of err. Validation errors keep their
// field details; everything else shows only the mapped key and status text.
func JSONError(w http.ResponseWriter, err error) error {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		detail := &ErrorDetail{
			Code:    "validation_error",
			Message: http.StatusText(http.StatusUnprocessableEntity),
			Details: make(map[string][]string, len(valErr)),
		}
		maps.Copy(detail.Details, valErr)
		return writeJSON(w, http.StatusUnprocessableEntity, JSONResponse{Error: detail})
	}

	httpErr := ErrorFor(err)
	if httpErr.Code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	}
	return writeJSON(w, httpErr.Code, JSONResponse{Error: &ErrorDetail{
		Code:    httpErr.Key,
		Message: http.StatusText(httpErr.Code),
	}})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
