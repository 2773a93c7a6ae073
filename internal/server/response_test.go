package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/schedule"
	"github.com/openmentor/scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	writeError(c, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("slot 7: %w", service.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"slot taken", service.ErrConflict, http.StatusConflict, "SLOT_TAKEN"},
		{"invalid state", service.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{"validation", fmt.Errorf("%w: duration must not be negative", service.ErrValidation), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"retryable", service.ErrRetryable, http.StatusServiceUnavailable, "TRY_AGAIN"},
		{"unknown collapses to internal", errors.New("pool exhausted"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := recordError(t, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

// Превышение лимита несёт конкретное окно в теле ответа
func TestWriteErrorLimitExceeded(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &service.LimitExceededError{Kind: schedule.LimitWeekly, Limit: 3})

	rec, body := recordError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "LIMIT_EXCEEDED", body.Code)
	assert.Equal(t, "weekly", body.Limit)
}

// Текст внутренней ошибки не утекает наружу
func TestWriteErrorHidesInternalDetails(t *testing.T) {
	_, body := recordError(t, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, "internal error", body.Message)
}
