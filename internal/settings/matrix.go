package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/Leganyst/dance-studio/internal/model"
)

// Допустимые ключи матриц цен.
var (
	AllowedLessonCounts = []int{4, 8, 12}
	AllowedBundleSizes  = []int{2, 3}
)

// LessonPrices: количество занятий → цена, руб.
type LessonPrices map[int]int

// SinglePriceMatrix: цены multi-абонемента на одну группу.
type SinglePriceMatrix map[model.DirectionType]LessonPrices

// BundlePriceMatrix: цены multi-абонемента на связку из 2–3 групп.
type BundlePriceMatrix map[model.DirectionType]map[int]LessonPrices

func (m SinglePriceMatrix) Price(dt model.DirectionType, lessons int) (int, bool) {
	byLessons, ok := m[dt]
	if !ok {
		return 0, false
	}
	price, ok := byLessons[lessons]
	return price, ok
}

func (m BundlePriceMatrix) Price(dt model.DirectionType, bundleSize, lessons int) (int, bool) {
	bySize, ok := m[dt]
	if !ok {
		return 0, false
	}
	byLessons, ok := bySize[bundleSize]
	if !ok {
		return 0, false
	}
	price, ok := byLessons[lessons]
	return price, ok
}

func (m SinglePriceMatrix) raw() any {
	wire := make(map[string]map[string]int, len(m))
	for dt, byLessons := range m {
		wire[string(dt)] = lessonsWire(byLessons)
	}
	return roundTrip(wire)
}

func (m BundlePriceMatrix) raw() any {
	wire := make(map[string]map[string]map[string]int, len(m))
	for dt, bySize := range m {
		inner := make(map[string]map[string]int, len(bySize))
		for size, byLessons := range bySize {
			inner[strconv.Itoa(size)] = lessonsWire(byLessons)
		}
		wire[string(dt)] = inner
	}
	return roundTrip(wire)
}

func lessonsWire(p LessonPrices) map[string]int {
	out := make(map[string]int, len(p))
	for lessons, price := range p {
		out[strconv.Itoa(lessons)] = price
	}
	return out
}

// roundTrip приводит значение к тому виду, в котором оно вернётся из JSON-колонки.
func roundTrip(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

// ParseSinglePriceMatrix разбирает JSON-значение вида {"dance": {"8": 3200}}.
func ParseSinglePriceMatrix(v any) (SinglePriceMatrix, error) {
	top, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object keyed by direction type")
	}
	out := make(SinglePriceMatrix, len(top))
	for dirKey, inner := range top {
		dt, err := parseDirection(dirKey)
		if err != nil {
			return nil, err
		}
		prices, err := parseLessonPrices(inner, dirKey)
		if err != nil {
			return nil, err
		}
		out[dt] = prices
	}
	return out, nil
}

// ParseBundlePriceMatrix разбирает JSON-значение вида {"dance": {"2": {"8": 12800}}}.
func ParseBundlePriceMatrix(v any) (BundlePriceMatrix, error) {
	top, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object keyed by direction type")
	}
	out := make(BundlePriceMatrix, len(top))
	for dirKey, inner := range top {
		dt, err := parseDirection(dirKey)
		if err != nil {
			return nil, err
		}
		bySizeRaw, ok := inner.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object keyed by bundle size", dirKey)
		}
		bySize := make(map[int]LessonPrices, len(bySizeRaw))
		for sizeKey, lessonsRaw := range bySizeRaw {
			size, err := strconv.Atoi(sizeKey)
			if err != nil || !slices.Contains(AllowedBundleSizes, size) {
				return nil, fmt.Errorf("%s: bundle size must be one of %v, got %q", dirKey, AllowedBundleSizes, sizeKey)
			}
			prices, err := parseLessonPrices(lessonsRaw, dirKey+"/"+sizeKey)
			if err != nil {
				return nil, err
			}
			bySize[size] = prices
		}
		out[dt] = bySize
	}
	return out, nil
}

func parseDirection(key string) (model.DirectionType, error) {
	dt := model.DirectionType(key)
	if !dt.Valid() {
		return "", fmt.Errorf("unknown direction type %q", key)
	}
	return dt, nil
}

func parseLessonPrices(v any, path string) (LessonPrices, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object keyed by lessons count", path)
	}
	out := make(LessonPrices, len(m))
	for lessonsKey, priceRaw := range m {
		lessons, err := strconv.Atoi(lessonsKey)
		if err != nil || !slices.Contains(AllowedLessonCounts, lessons) {
			return nil, fmt.Errorf("%s: lessons count must be one of %v, got %q", path, AllowedLessonCounts, lessonsKey)
		}
		f, ok := asFloat(priceRaw)
		if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
			return nil, fmt.Errorf("%s/%s: price must be a non-negative integer", path, lessonsKey)
		}
		out[lessons] = int(f)
	}
	return out, nil
}

func normalizeSingleMatrix(key string, v any) (any, error) {
	m, err := ParseSinglePriceMatrix(v)
	if err != nil {
		return nil, invalid(key, "%v", err)
	}
	return m.raw(), nil
}

func normalizeBundleMatrix(key string, v any) (any, error) {
	m, err := ParseBundlePriceMatrix(v)
	if err != nil {
		return nil, invalid(key, "%v", err)
	}
	return m.raw(), nil
}
