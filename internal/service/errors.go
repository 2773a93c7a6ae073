package service

import (
	"errors"
	"fmt"

	"github.com/openmentor/scheduler/internal/schedule"
)

// Классифицированные ошибки движка. Транспортный слой сопоставляет каждому
// виду свой HTTP-статус, конкретный вид не теряется при прокидывании наверх.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("slot is no longer available")
	ErrInvalidState  = errors.New("invalid status transition")
	ErrLimitExceeded = errors.New("meeting limit exceeded")
	ErrRetryable     = errors.New("temporarily unavailable")
)

// LimitExceededError превышение квоты с указанием конкретного окна,
// чтобы интерфейс мог объяснить какой именно лимит достигнут
type LimitExceededError struct {
	Kind  schedule.LimitKind
	Limit int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit of %d reached", e.Kind, e.Limit)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
