package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid amount", customError.WrapInvalidAmount("0"), http.StatusBadRequest},
		{"reason required", customError.WrapReasonRequired("refund"), http.StatusBadRequest},
		{"fee not found", customError.WrapFeeNotFound("x"), http.StatusNotFound},
		{"student not found", customError.WrapStudentNotFound(1), http.StatusNotFound},
		{"inconsistent", customError.WrapInconsistentLedger("x", "1", "2"), http.StatusConflict},
		{"duplicate", customError.WrapDuplicatePeriodRecord(1, "2025-01"), http.StatusConflict},
		{"not eligible", customError.WrapStudentNotEligible(1, "inactive"), http.StatusUnprocessableEntity},
		{"refund too large", customError.WrapRefundExceedsPaid("10", "5"), http.StatusUnprocessableEntity},
		{"lock", customError.WrapLockError("k", errors.New("deadline")), http.StatusServiceUnavailable},
		{"database", customError.WrapDatabaseError(errors.New("down")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestFromError_WritesCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := httptest.NewRecorder()
	FromError(rec, zap.New(core), customError.WrapFeeNotFound("abc"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, customError.ErrCodeFeeNotFound, body.Code)
	assert.Zero(t, logs.Len())
}

func TestFromError_LogsServerErrorsToInjectedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := httptest.NewRecorder()
	FromError(rec, zap.New(core), customError.WrapDatabaseError(errors.New("connection reset")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, customError.ErrCodeDatabaseError, entry.ContextMap()["code"])

	assert.NotPanics(t, func() {
		FromError(httptest.NewRecorder(), nil, errors.New("boom"))
	})
}

func TestWrite_EncodingFailureIsServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (b brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestLoggingMiddleware_LogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Success(w, "ok")
	}))

	handler.ServeHTTP(brokenWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to write response", logs.All()[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Created(w, map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
}
