package settings

import (
	"errors"
	"fmt"
)

// ErrUnknownKey: ключ отсутствует в каталоге настроек.
var ErrUnknownKey = errors.New("settings: unknown key")

// ValidationError: значение не прошло проверку по спецификации ключа.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("setting %s: %s", e.Key, e.Message)
}

func invalid(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}
