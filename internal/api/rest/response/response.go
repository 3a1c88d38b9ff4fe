// Package response renders the JSON envelope shared by every service.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/requestid"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   *ErrorField `json:"error,omitempty"`
}

type ErrorField struct {
	Code    apperror.Code `json:"code"`
	Message string        `json:"message"`
}

// JSONResponse writes the given data as a JSON response with the specified status code.
func JSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// Success wraps data in a successful envelope.
func Success(w http.ResponseWriter, statusCode int, data any) {
	JSONResponse(w, statusCode, Envelope{Success: true, Data: data})
}

// Failure writes an error envelope with the status that belongs to code.
func Failure(w http.ResponseWriter, code apperror.Code, message string) {
	JSONResponse(w, code.Status(), Envelope{Error: &ErrorField{Code: code, Message: message}})
}

// Error renders err. Errors without an apperror code are logged and answered with INTERNAL_ERROR.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		logger.ErrorContext(r.Context(), "unhandled error", "error", err, "request_id", requestid.FromContext(r.Context()))
		Failure(w, apperror.CodeInternal, apperror.InternalMessage)
		return
	}

	if appErr.Code.Status() >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "error", err, "request_id", requestid.FromContext(r.Context()))
	} else {
		logger.DebugContext(r.Context(), "request rejected", "error", err, "request_id", requestid.FromContext(r.Context()))
	}

	message := appErr.Message
	if appErr.Code == apperror.CodeInternal {
		message = apperror.InternalMessage
	}

	Failure(w, appErr.Code, message)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Failure(w, apperror.CodeNotFound, "route not found")
}

// MethodNotAllowed answers known routes requested with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Failure(w, apperror.CodeMethodNotAllowed, "method not allowed")
}
