package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrAbonementNotFound  = errors.New("abonement not found")
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrUserNotFound       = errors.New("user not found")
)

// Error: операция нарушает бизнес-правила; Message показывается пользователю.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}
