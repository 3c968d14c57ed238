package pricing

import (
	"errors"
	"fmt"
)

// Error: запрос на расчёт нарушает бизнес-правила.
// Message можно показывать пользователю как есть.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func IsPricingError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
