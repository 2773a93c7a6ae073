package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/service"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Limit   string `json:"limit,omitempty"` // какое окно лимита превышено
}

// writeError сопоставляет классифицированной ошибке движка HTTP-статус.
// Конкретный вид никогда не схлопывается в generic 500.
func writeError(c *gin.Context, err error) {
	var limitErr *service.LimitExceededError

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, service.ErrConflict):
		// Клиенту следует перезапросить список слотов, а не повторять запрос
		c.JSON(http.StatusConflict, ErrorResponse{Code: "SLOT_TAKEN", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.As(err, &limitErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "LIMIT_EXCEEDED",
			Message: err.Error(),
			Limit:   string(limitErr.Kind),
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
	case errors.Is(err, service.ErrRetryable):
		// Слот мог остаться свободным, клиент может повторить попытку
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "TRY_AGAIN", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
	}
}

// badRequest отвечает на синтаксически некорректный запрос
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Message: message})
}
