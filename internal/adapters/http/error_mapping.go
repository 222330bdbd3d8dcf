package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var kindStatus = map[error]int{
	domain.ErrInvalidInput:     http.StatusBadRequest,
	domain.ErrDocumentNotFound: http.StatusNotFound,
	domain.ErrTemporary:        http.StatusServiceUnavailable,
	domain.ErrRemoteService:    http.StatusServiceUnavailable,
}

// mapErrorToHTTPStatus maps an error kind to a status. Extraction failures and
// untyped errors are server errors.
func mapErrorToHTTPStatus(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal error"
	}
}

// writeDomainError maps a use case error onto status and body.
func writeDomainError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	writeError(w, status, errorMessage(status), err)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
