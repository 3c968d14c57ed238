package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/config"
	"github.com/Leganyst/dance-studio/internal/db"
	"github.com/Leganyst/dance-studio/internal/httpx"
	"github.com/Leganyst/dance-studio/internal/ledger"
	"github.com/Leganyst/dance-studio/internal/logger"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/pricing"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/service"
	"github.com/Leganyst/dance-studio/internal/settings"
)

func main() {
	// 1. .env (если есть) и конфиг из env.
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("load db config: %v", err)
	}

	lg := logger.New(appCfg.Env)
	slog.SetDefault(lg)

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		lg.Error("init db failed", "err", err)
		os.Exit(1)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		lg.Error("sql DB failed", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// 3. Миграции и настройки по умолчанию.
	if err := model.AutoMigrate(gormDB); err != nil {
		lg.Error("auto migrate failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := settings.NewStore(lg)
	report, err := store.EnsureDefaults(ctx, gormDB)
	if err != nil {
		lg.Error("ensure default settings failed", "err", err)
		os.Exit(1)
	}
	lg.Info("settings ready", "inserted", len(report.Inserted), "repaired", len(report.Repaired))

	// 4. Доменные компоненты.
	resolver := roster.NewResolver(lg)
	led := ledger.New(lg, store, resolver, appCfg.Location, nil)
	svc := service.NewAbonementService(service.Deps{
		DB:       gormDB,
		Logger:   lg,
		Location: appCfg.Location,
		Store:    store,
		Engine:   pricing.NewEngine(lg, appCfg.Location, nil),
		Ledger:   led,
		Resolver: resolver,
	})
	if appCfg.ExpireEvery > 0 {
		go runExpiry(ctx, lg, gormDB, led, appCfg.ExpireEvery)
	}

	// 5. gRPC-сервер.
	grpcServer := grpc.NewServer()
	abonementpb.RegisterAbonementServiceServer(grpcServer, svc)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", appCfg.GRPCAddr)
	if err != nil {
		lg.Error("listen failed", "addr", appCfg.GRPCAddr, "err", err)
		os.Exit(1)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			lg.Error("grpc serve failed", "err", err)
			stop()
		}
	}()
	lg.Info("gRPC server listening", "addr", appCfg.GRPCAddr)

	// 6. Служебный HTTP: health, метрики, выгрузки.
	ops := httpx.New(httpx.Options{
		Addr:          appCfg.HTTPAddr,
		ExposeMetrics: appCfg.MetricsEnabled,
		DB:            gormDB,
		Location:      appCfg.Location,
		Logger:        lg,
	})
	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server failed", "err", err)
		}
	}()
	lg.Info("HTTP server started", "addr", appCfg.HTTPAddr)

	// 7. Грейсфул-шатдаун по сигналу.
	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ops.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	lg.Info("graceful shutdown complete")
}

// runExpiry периодически переводит просроченные абонементы в expired.
func runExpiry(ctx context.Context, lg *slog.Logger, gormDB *gorm.DB, led *ledger.Ledger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				_, err := led.ExpireOverdue(ctx, tx)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("expire abonements failed", "err", err)
			}
		}
	}
}
