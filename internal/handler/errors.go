package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/recipe-api/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// badRequest returns a validation error for input rejected before it reaches
// the service layer, such as a malformed body or query parameter.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// writeError maps err onto a status code and JSON body. Unexpected errors are
// logged with the request id and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr     *domain.ValidationError
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request_too_large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil))
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody("validation_error", "invalid input", vErr.Fields))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody("validation_error", unwrapMessage(err), nil))
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_credentials", domain.ErrInvalidCredentials.Error(), nil))
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthenticated", domain.ErrUnauthenticated.Error(), nil))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "not found", nil))
	default:
		s.logger.ErrorContext(r.Context(), "unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error", nil))
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody("not_found", "no route for "+r.URL.Path, nil))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed",
		fmt.Sprintf("method %s not allowed", r.Method), nil))
}

func errorBody(code, message string, fields map[string]string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Fields: fields}}
}

// unwrapMessage strips the category prefix from a validation error,
// e.g. "validation error: malformed JSON body" -> "malformed JSON body".
func unwrapMessage(err error) string {
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
