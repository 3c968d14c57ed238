package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Env            string
	GRPCAddr       string
	HTTPAddr       string
	Timezone       string
	MetricsEnabled bool
	// Как часто закрывать просроченные абонементы; 0: не закрывать.
	ExpireEvery time.Duration

	Location *time.Location
}

// LoadDotEnv подмешивает переменные из .env-файлов, если они есть.
// Уже выставленные переменные окружения не перетираются.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Env:            getEnv("APP_ENV", "prod"),
		GRPCAddr:       getEnv("CORE_GRPC_ADDR", ":50051"),
		HTTPAddr:       getEnv("CORE_HTTP_ADDR", ":8081"),
		Timezone:       getEnv("APP_TIMEZONE", "Europe/Moscow"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		ExpireEvery:    time.Duration(getEnvInt("ABONEMENT_EXPIRE_INTERVAL_MIN", 60)) * time.Minute,
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "dev"
}
