package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"go.uber.org/zap"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool        `json:"success"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error"`
	Message   string      `json:"message,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}
	write(w, statusCode, response)
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	response := ErrorResponse{
		Success:   false,
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		response.Error = err.Error()
		response.Code = customError.Code(err)
	}

	write(w, statusCode, response)
}

// ErrorWithDetails sends an error response that also carries a payload, such as
// the verification that found a ledger inconsistent.
func ErrorWithDetails(w http.ResponseWriter, err error, details interface{}) {
	status, message := StatusFor(err)
	write(w, status, ErrorResponse{
		Success:   false,
		Code:      customError.Code(err),
		Error:     err.Error(),
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	})
}

// FromError sends err with the HTTP status its business code maps to.
// Server-side failures are logged to logger.
func FromError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error(message, zap.String("code", customError.Code(err)), zap.Error(err))
	}
	Error(w, status, message, err)
}

// StatusFor maps an error to an HTTP status and a short message.
func StatusFor(err error) (int, string) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch be.Code {
	case customError.ErrCodeInvalidAmount,
		customError.ErrCodeInvalidPeriod,
		customError.ErrCodeInvalidTransactionKind,
		customError.ErrCodeReasonRequired:
		return http.StatusBadRequest, be.Message
	case customError.ErrCodeFeeNotFound,
		customError.ErrCodeTransactionNotFound,
		customError.ErrCodeStudentNotFound:
		return http.StatusNotFound, be.Message
	case customError.ErrCodeDuplicatePeriodRecord,
		customError.ErrCodeInconsistentLedger:
		return http.StatusConflict, be.Message
	case customError.ErrCodeStudentNotEligible,
		customError.ErrCodeRefundExceedsPaid:
		return http.StatusUnprocessableEntity, be.Message
	case customError.ErrCodeLockError:
		return http.StatusServiceUnavailable, be.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// write encodes body before touching w, so an encoding failure still yields a
// well-formed 500. Failures writing to the client surface through LoggingMiddleware.
func write(w http.ResponseWriter, statusCode int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		statusCode = http.StatusInternalServerError
		payload = []byte(`{"success":false,"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// JSONMiddleware sets JSON content type for all responses
func JSONMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response recorder to capture the status code
			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.statusCode),
				zap.Duration("duration", time.Since(start)),
			}
			if recorder.writeErr != nil {
				logger.Warn("failed to write response", append(fields, zap.Error(recorder.writeErr))...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	writeErr   error
}

func (rec *responseRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	if err != nil && rec.writeErr == nil {
		rec.writeErr = err
	}
	return n, err
}
