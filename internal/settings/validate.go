package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Leganyst/dance-studio/internal/model"
)

var validate = validator.New()

// Validate приводит сырое значение к типу ключа и проверяет ограничения.
// Возвращает каноническое значение, пригодное для сохранения в JSON.
func (s Spec) Validate(raw any) (any, error) {
	if raw == nil {
		return nil, invalid(s.Key, "value is required")
	}

	var (
		v   any
		err error
	)
	switch s.Type {
	case model.SettingTypeBool:
		v, err = s.validateBool(raw)
	case model.SettingTypeInt:
		v, err = s.validateInt(raw)
	case model.SettingTypeFloat:
		v, err = s.validateFloat(raw)
	case model.SettingTypeString:
		v, err = s.validateString(raw)
	case model.SettingTypeJSON:
		v, err = s.validateJSON(raw)
	default:
		return nil, fmt.Errorf("settings: key %s has unsupported type %q", s.Key, s.Type)
	}
	if err != nil {
		return nil, err
	}

	if s.normalize != nil {
		return s.normalize(s.Key, v)
	}
	return v, nil
}

func (s Spec) validateBool(raw any) (any, error) {
	switch t := raw.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off", "":
			return false, nil
		}
	default:
		if f, ok := asFloat(raw); ok {
			switch f {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
		}
	}
	return nil, invalid(s.Key, "expected boolean, got %v", raw)
}

func (s Spec) validateInt(raw any) (any, error) {
	var n int
	switch t := raw.(type) {
	case bool:
		return nil, invalid(s.Key, "expected integer, got boolean")
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, invalid(s.Key, "expected integer, got %q", t)
		}
		n = parsed
	default:
		f, ok := asFloat(raw)
		if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return nil, invalid(s.Key, "expected integer, got %v", raw)
		}
		n = int(f)
	}

	if tag := s.boundsTag(); tag != "" {
		if err := validate.Var(n, tag); err != nil {
			return nil, s.outOfRange(n)
		}
	}
	return n, nil
}

func (s Spec) validateFloat(raw any) (any, error) {
	var f float64
	switch t := raw.(type) {
	case bool:
		return nil, invalid(s.Key, "expected number, got boolean")
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, invalid(s.Key, "expected number, got %q", t)
		}
		f = parsed
	default:
		parsed, ok := asFloat(raw)
		if !ok {
			return nil, invalid(s.Key, "expected number, got %v", raw)
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(s.Key, "expected finite number")
	}

	if tag := s.boundsTag(); tag != "" {
		if err := validate.Var(f, tag); err != nil {
			return nil, s.outOfRange(f)
		}
	}
	return f, nil
}

func (s Spec) validateString(raw any) (any, error) {
	str, ok := raw.(string)
	if !ok {
		return nil, invalid(s.Key, "expected string, got %v", raw)
	}
	str = strings.TrimSpace(str)
	if s.MaxLen > 0 {
		if err := validate.Var(str, "max="+strconv.Itoa(s.MaxLen)); err != nil {
			return nil, invalid(s.Key, "must be at most %d characters", s.MaxLen)
		}
	}
	return str, nil
}

func (s Spec) validateJSON(raw any) (any, error) {
	var data []byte
	switch t := raw.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, invalid(s.Key, "value is not JSON-serializable")
		}
		data = b
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, invalid(s.Key, "invalid JSON: %v", err)
	}
	return v, nil
}

func (s Spec) boundsTag() string {
	var parts []string
	if s.Min != nil {
		parts = append(parts, "gte="+strconv.FormatFloat(*s.Min, 'f', -1, 64))
	}
	if s.Max != nil {
		parts = append(parts, "lte="+strconv.FormatFloat(*s.Max, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (s Spec) outOfRange(v any) error {
	switch {
	case s.Min != nil && s.Max != nil:
		return invalid(s.Key, "must be between %v and %v, got %v", *s.Min, *s.Max, v)
	case s.Min != nil:
		return invalid(s.Key, "must be >= %v, got %v", *s.Min, v)
	default:
		return invalid(s.Key, "must be <= %v, got %v", *s.Max, v)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
