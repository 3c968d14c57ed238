// Package httpx поднимает служебный HTTP: health, метрики и выгрузка журнала абонемента.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/report"
	"github.com/Leganyst/dance-studio/internal/repository"
)

type Server struct {
	srv *http.Server
}

type Options struct {
	Addr          string
	ExposeMetrics bool
	DB            *gorm.DB
	Location      *time.Location
	Logger        *slog.Logger
}

func New(opts Options) *Server {
	return &Server{srv: &http.Server{
		Addr:              opts.Addr,
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// NewHandler собирает маршруты; вынесено отдельно для тестов через httptest.
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if err := ping(r.Context(), opts.DB); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("DB UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.ExposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	if opts.DB != nil {
		mux.HandleFunc("/reports/action-log.xlsx", actionLogReport(opts))
	}

	return mux
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func actionLogReport(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.ParseInt(r.URL.Query().Get("abonement_id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "abonement_id must be a positive integer", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		ab, err := repository.NewGormAbonementRepository(opts.DB).GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "abonement not found", http.StatusNotFound)
			return
		}
		if err != nil {
			opts.Logger.ErrorContext(ctx, "report: load abonement", slog.Int64("abonement_id", id), slog.Any("err", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		entries, err := repository.NewGormActionLogRepository(opts.DB).ListByAbonement(ctx, id)
		if err != nil {
			opts.Logger.ErrorContext(ctx, "report: load action log", slog.Int64("abonement_id", id), slog.Any("err", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		buf := &bytes.Buffer{}
		if err := report.WriteActionLog(buf, ab, entries, opts.Location); err != nil {
			opts.Logger.ErrorContext(ctx, "report: build xlsx", slog.Int64("abonement_id", id), slog.Any("err", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="abonement_%d_log.xlsx"`, id))
		_, _ = w.Write(buf.Bytes())
	}
}
