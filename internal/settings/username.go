package settings

import (
	"errors"
	"regexp"
	"strings"
)

var telegramUsernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)

var ErrInvalidTelegramUsername = errors.New("telegram username must be 5-32 characters: latin letters, digits or underscore, starting with a letter")

// NormalizeTelegramUsername приводит ник к виду "@username".
// Принимает варианты с "@", ссылкой t.me и лишними пробелами.
func NormalizeTelegramUsername(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	if !telegramUsernameRe.MatchString(s) {
		return "", ErrInvalidTelegramUsername
	}
	return "@" + strings.ToLower(s), nil
}

// Пустая строка допустима: контакт просто не задан.
func normalizeTelegramSetting(key string, v any) (any, error) {
	s, _ := v.(string)
	if s == "" {
		return "", nil
	}
	norm, err := NormalizeTelegramUsername(s)
	if err != nil {
		return nil, invalid(key, "%v", err)
	}
	return norm, nil
}
