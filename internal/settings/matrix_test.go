package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/dance-studio/internal/model"
)

func TestParseSinglePriceMatrix(t *testing.T) {
	raw := map[string]any{
		"dance": map[string]any{"8": float64(3200), "4": float64(1800)},
	}
	m, err := ParseSinglePriceMatrix(raw)
	require.NoError(t, err)

	price, ok := m.Price(model.DirectionTypeDance, 8)
	require.True(t, ok)
	assert.Equal(t, 3200, price)

	_, ok = m.Price(model.DirectionTypeDance, 12)
	assert.False(t, ok)
	_, ok = m.Price(model.DirectionTypeSport, 8)
	assert.False(t, ok)
}

func TestParseSinglePriceMatrix_Rejects(t *testing.T) {
	cases := map[string]any{
		"not an object":     []any{1, 2},
		"unknown direction": map[string]any{"yoga": map[string]any{"8": float64(1)}},
		"bad lessons key":   map[string]any{"dance": map[string]any{"7": float64(1)}},
		"negative price":    map[string]any{"dance": map[string]any{"8": float64(-5)}},
		"fractional price":  map[string]any{"dance": map[string]any{"8": 10.5}},
		"string price":      map[string]any{"dance": map[string]any{"8": "100"}},
	}
	for name, raw := range cases {
		_, err := ParseSinglePriceMatrix(raw)
		assert.Error(t, err, name)
	}
}

func TestParseBundlePriceMatrix(t *testing.T) {
	raw := map[string]any{
		"dance": map[string]any{
			"2": map[string]any{"8": float64(12800)},
		},
	}
	m, err := ParseBundlePriceMatrix(raw)
	require.NoError(t, err)

	price, ok := m.Price(model.DirectionTypeDance, 2, 8)
	require.True(t, ok)
	assert.Equal(t, 12800, price)

	_, ok = m.Price(model.DirectionTypeDance, 3, 8)
	assert.False(t, ok)

	_, err = ParseBundlePriceMatrix(map[string]any{
		"dance": map[string]any{"4": map[string]any{"8": float64(1)}},
	})
	assert.Error(t, err)
}

func TestDefaultMatricesAreValid(t *testing.T) {
	_, err := ParseSinglePriceMatrix(defaultSinglePrices.raw())
	require.NoError(t, err)

	bundle, err := ParseBundlePriceMatrix(defaultBundlePrices.raw())
	require.NoError(t, err)
	assert.Equal(t, defaultBundlePrices, bundle)
}
