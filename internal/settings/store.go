package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/repository"
)

// Источники изменений для журнала.
const (
	SourceAdmin        = "admin"
	SourceSystemRepair = "system_repair"
)

// Store: типизированное хранилище настроек поверх таблицы settings.
// Работает через переданный *gorm.DB (обычно транзакцию запроса).
type Store struct {
	logger *slog.Logger
	specs  map[string]Spec
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		specs:  specIndex(),
	}
}

// View: текущее значение настройки вместе с метаданными.
type View struct {
	Key              string                 `json:"key"`
	Type             model.SettingValueType `json:"value_type"`
	Value            any                    `json:"value"`
	Default          any                    `json:"default"`
	Description      string                 `json:"description"`
	IsDefault        bool                   `json:"is_default"`
	UpdatedAt        *time.Time             `json:"updated_at,omitempty"`
	UpdatedByStaffID *int64                 `json:"updated_by_staff_id,omitempty"`
	// Только для Update: было ли значение реально изменено.
	Changed bool `json:"changed"`
}

// EnsureReport: что сделал EnsureDefaults.
type EnsureReport struct {
	Inserted []string
	Repaired []string
}

func (s *Store) Spec(key string) (Spec, error) {
	spec, ok := s.specs[key]
	if !ok {
		return Spec{}, unknownKey(key)
	}
	return spec, nil
}

// Value возвращает проверенное значение ключа или значение по умолчанию,
// если ключ не сохранён или сохранён с ошибкой.
func (s *Store) Value(ctx context.Context, db *gorm.DB, key string) (any, error) {
	view, err := s.Get(ctx, db, key)
	if err != nil {
		return nil, err
	}
	return view.Value, nil
}

func (s *Store) Get(ctx context.Context, db *gorm.DB, key string) (View, error) {
	spec, err := s.Spec(key)
	if err != nil {
		return View{}, err
	}

	view := View{
		Key:         key,
		Type:        spec.Type,
		Value:       spec.Default,
		Default:     spec.Default,
		Description: spec.Description,
		IsDefault:   true,
	}

	row, err := repository.NewGormSettingRepository(db).Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return View{}, fmt.Errorf("load setting %s: %w", key, err)
	}

	updatedAt := row.UpdatedAt
	view.UpdatedAt = &updatedAt
	view.UpdatedByStaffID = row.UpdatedByStaffID

	v, err := decodeStored(spec, row.ValueJSON)
	if err != nil {
		s.logger.WarnContext(ctx, "stored setting is invalid, using default",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
		return view, nil
	}
	view.Value = v
	view.IsDefault = false
	return view, nil
}

func (s *Store) Int(ctx context.Context, db *gorm.DB, key string) (int, error) {
	v, err := s.Value(ctx, db, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("settings: %s is not an int", key)
	}
	return n, nil
}

func (s *Store) Float(ctx context.Context, db *gorm.DB, key string) (float64, error) {
	v, err := s.Value(ctx, db, key)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("settings: %s is not a float", key)
	}
	return f, nil
}

func (s *Store) Bool(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	v, err := s.Value(ctx, db, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("settings: %s is not a bool", key)
	}
	return b, nil
}

func (s *Store) String(ctx context.Context, db *gorm.DB, key string) (string, error) {
	v, err := s.Value(ctx, db, key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("settings: %s is not a string", key)
	}
	return str, nil
}

func (s *Store) SinglePrices(ctx context.Context, db *gorm.DB) (SinglePriceMatrix, error) {
	v, err := s.Value(ctx, db, KeyMultiSinglePrices)
	if err != nil {
		return nil, err
	}
	return ParseSinglePriceMatrix(v)
}

func (s *Store) BundlePrices(ctx context.Context, db *gorm.DB) (BundlePriceMatrix, error) {
	v, err := s.Value(ctx, db, KeyMultiBundlePrices)
	if err != nil {
		return nil, err
	}
	return ParseBundlePriceMatrix(v)
}

// Update проверяет и сохраняет новое значение. Запись в setting_changes
// появляется только если значение действительно изменилось.
func (s *Store) Update(
	ctx context.Context,
	db *gorm.DB,
	key string,
	raw any,
	staffID *int64,
	reason string,
	source string,
) (View, error) {
	spec, err := s.Spec(key)
	if err != nil {
		return View{}, err
	}

	value, err := spec.Validate(raw)
	if err != nil {
		return View{}, err
	}
	newJSON, err := json.Marshal(value)
	if err != nil {
		return View{}, fmt.Errorf("encode setting %s: %w", key, err)
	}
	stored, err := wrapStored(newJSON)
	if err != nil {
		return View{}, fmt.Errorf("encode setting %s: %w", key, err)
	}
	if source == "" {
		source = SourceAdmin
	}

	repo := repository.NewGormSettingRepository(db)

	row, err := repo.Get(ctx, key)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = &model.Setting{
			Key:              key,
			ValueJSON:        stored,
			ValueType:        spec.Type,
			UpdatedByStaffID: staffID,
		}
		if err := repo.Create(ctx, row); err != nil {
			return View{}, fmt.Errorf("create setting %s: %w", key, err)
		}
		if err := s.appendChange(ctx, repo, key, nil, stored, staffID, reason, source); err != nil {
			return View{}, err
		}
		s.logger.InfoContext(ctx, "setting created", slog.String("key", key), slog.String("source", source))
		return s.viewAfterUpdate(spec, row, value, true), nil

	case err != nil:
		return View{}, fmt.Errorf("load setting %s: %w", key, err)
	}

	oldStored := row.ValueJSON
	changed := true
	if old, err := decodeStored(spec, row.ValueJSON); err == nil {
		oldJSON, _ := json.Marshal(old)
		changed = !bytes.Equal(oldJSON, newJSON)
	}

	row.ValueJSON = stored
	row.ValueType = spec.Type
	row.UpdatedByStaffID = staffID
	if err := repo.Save(ctx, row); err != nil {
		return View{}, fmt.Errorf("save setting %s: %w", key, err)
	}

	if changed {
		if err := s.appendChange(ctx, repo, key, oldStored, stored, staffID, reason, source); err != nil {
			return View{}, err
		}
		s.logger.InfoContext(ctx, "setting updated", slog.String("key", key), slog.String("source", source))
	}

	return s.viewAfterUpdate(spec, row, value, changed), nil
}

// EnsureDefaults дописывает отсутствующие ключи и чинит невалидные значения.
// Идемпотентен.
func (s *Store) EnsureDefaults(ctx context.Context, db *gorm.DB) (EnsureReport, error) {
	var report EnsureReport
	repo := repository.NewGormSettingRepository(db)

	for _, spec := range Catalogue() {
		defJSON, err := encodeStored(spec.Default)
		if err != nil {
			return report, fmt.Errorf("encode default %s: %w", spec.Key, err)
		}

		row, err := repo.Get(ctx, spec.Key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = &model.Setting{
				Key:       spec.Key,
				ValueJSON: defJSON,
				ValueType: spec.Type,
			}
			if err := repo.Create(ctx, row); err != nil {
				return report, fmt.Errorf("insert default %s: %w", spec.Key, err)
			}
			report.Inserted = append(report.Inserted, spec.Key)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("load setting %s: %w", spec.Key, err)
		}

		if _, err := decodeStored(spec, row.ValueJSON); err == nil && row.ValueType == spec.Type {
			continue
		}

		oldJSON := row.ValueJSON
		row.ValueJSON = defJSON
		row.ValueType = spec.Type
		row.UpdatedByStaffID = nil
		if err := repo.Save(ctx, row); err != nil {
			return report, fmt.Errorf("repair setting %s: %w", spec.Key, err)
		}
		if err := s.appendChange(ctx, repo, spec.Key, oldJSON, defJSON, nil, "invalid stored value", SourceSystemRepair); err != nil {
			return report, err
		}
		s.logger.WarnContext(ctx, "setting repaired to default", slog.String("key", spec.Key))
		report.Repaired = append(report.Repaired, spec.Key)
	}

	return report, nil
}

// History: журнал изменений ключа, от новых к старым.
func (s *Store) History(ctx context.Context, db *gorm.DB, key string) ([]model.SettingChange, error) {
	if _, err := s.Spec(key); err != nil {
		return nil, err
	}
	return repository.NewGormSettingRepository(db).ListChanges(ctx, key)
}

func (s *Store) appendChange(
	ctx context.Context,
	repo repository.SettingRepository,
	key string,
	oldJSON, newJSON datatypes.JSON,
	staffID *int64,
	reason, source string,
) error {
	change := &model.SettingChange{
		SettingKey:       key,
		NewValueJSON:     newJSON,
		ChangedByStaffID: staffID,
		Reason:           reason,
		Source:           source,
	}
	if oldJSON != nil {
		change.OldValueJSON = oldJSON
	}
	if err := repo.AppendChange(ctx, change); err != nil {
		return fmt.Errorf("append setting change %s: %w", key, err)
	}
	metrics.SettingUpdatesTotal.WithLabelValues(key).Inc()
	return nil
}

func (s *Store) viewAfterUpdate(spec Spec, row *model.Setting, value any, changed bool) View {
	updatedAt := row.UpdatedAt
	return View{
		Key:              spec.Key,
		Type:             spec.Type,
		Value:            value,
		Default:          spec.Default,
		Description:      spec.Description,
		IsDefault:        false,
		UpdatedAt:        &updatedAt,
		UpdatedByStaffID: row.UpdatedByStaffID,
		Changed:          changed,
	}
}

// storedValue: в колонках value_json значение лежит обёрнутым в {"v": ...}.
// Голое число SQLite сохранит в JSON-колонке как INTEGER, и datatypes.JSON
// его обратно не прочитает.
type storedValue struct {
	V json.RawMessage `json:"v"`
}

func wrapStored(inner []byte) (datatypes.JSON, error) {
	b, err := json.Marshal(storedValue{V: inner})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func encodeStored(value any) (datatypes.JSON, error) {
	inner, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return wrapStored(inner)
}

// StoredValue достаёт само значение из колонки value_json.
// Строки не в обёртке возвращаются как есть.
func StoredValue(raw datatypes.JSON) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var sv storedValue
	if err := json.Unmarshal(raw, &sv); err == nil && len(sv.V) > 0 {
		return sv.V
	}
	return json.RawMessage(raw)
}

func decodeStored(spec Spec, raw datatypes.JSON) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	var sv storedValue
	if err := json.Unmarshal(raw, &sv); err != nil {
		return nil, err
	}
	if len(sv.V) == 0 {
		return nil, errors.New("value is not wrapped")
	}
	var v any
	if err := json.Unmarshal(sv.V, &v); err != nil {
		return nil, err
	}
	return spec.Validate(v)
}
