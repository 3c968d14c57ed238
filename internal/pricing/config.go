package pricing

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/settings"
)

// Config: снимок настроек цен на время одного запроса.
// Загружается один раз и дальше передаётся в Engine как значение.
type Config struct {
	SingleVisitPrice int
	TrialPrice       int
	Currency         string
	SinglePrices     settings.SinglePriceMatrix
	BundlePrices     settings.BundlePriceMatrix
}

func LoadConfig(ctx context.Context, db *gorm.DB, store *settings.Store) (Config, error) {
	var (
		cfg Config
		err error
	)

	if cfg.SingleVisitPrice, err = store.Int(ctx, db, settings.KeySingleVisitPrice); err != nil {
		return Config{}, fmt.Errorf("load pricing config: %w", err)
	}
	if cfg.TrialPrice, err = store.Int(ctx, db, settings.KeyTrialPrice); err != nil {
		return Config{}, fmt.Errorf("load pricing config: %w", err)
	}
	if cfg.Currency, err = store.String(ctx, db, settings.KeyCurrency); err != nil {
		return Config{}, fmt.Errorf("load pricing config: %w", err)
	}
	if cfg.SinglePrices, err = store.SinglePrices(ctx, db); err != nil {
		return Config{}, fmt.Errorf("load pricing config: %w", err)
	}
	if cfg.BundlePrices, err = store.BundlePrices(ctx, db); err != nil {
		return Config{}, fmt.Errorf("load pricing config: %w", err)
	}

	return cfg, nil
}
