package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/identity"
	"github.com/Leganyst/dance-studio/internal/ledger"
	"github.com/Leganyst/dance-studio/internal/pricing"
	"github.com/Leganyst/dance-studio/internal/repository"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/settings"
)

// AbonementService реализует gRPC-сервис абонементов.
// Каждый вызов выполняется в одной транзакции.
type AbonementService struct {
	abonementpb.UnimplementedAbonementServiceServer

	db       *gorm.DB
	logger   *slog.Logger
	loc      *time.Location
	store    *settings.Store
	engine   *pricing.Engine
	ledger   *ledger.Ledger
	resolver *roster.Resolver
}

type Deps struct {
	DB       *gorm.DB
	Logger   *slog.Logger
	Location *time.Location
	Store    *settings.Store
	Engine   *pricing.Engine
	Ledger   *ledger.Ledger
	Resolver *roster.Resolver
}

func NewAbonementService(d Deps) *AbonementService {
	return &AbonementService{
		db:       d.DB,
		logger:   d.Logger,
		loc:      d.Location,
		store:    d.Store,
		engine:   d.Engine,
		ledger:   d.Ledger,
		resolver: d.Resolver,
	}
}

// handle раскладывает запрос, выполняет fn в транзакции и упаковывает ответ.
func handle[Req any](s *AbonementService, ctx context.Context, method string, in *structpb.Struct, fn func(tx *gorm.DB, req *Req) (any, error)) (*structpb.Struct, error) {
	req := new(Req)
	if err := abonementpb.FromStruct(in, req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}

	var resp any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = fn(tx, req)
		return err
	})
	if err != nil {
		st := toStatus(err)
		if status.Code(st) == codes.Internal {
			s.logger.ErrorContext(ctx, "rpc failed", slog.String("method", method), slog.Any("err", err))
		}
		return nil, st
	}

	out, err := abonementpb.ToStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus переводит доменные ошибки в коды gRPC.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		pe *pricing.Error
		le *ledger.Error
		ve *settings.ValidationError
	)
	switch {
	case errors.As(err, &pe):
		return status.Error(codes.InvalidArgument, pe.Message)
	case errors.As(err, &le):
		return status.Error(codes.InvalidArgument, le.Message)
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, settings.ErrUnknownKey),
		errors.Is(err, ledger.ErrAbonementNotFound),
		errors.Is(err, ledger.ErrAttendanceNotFound),
		errors.Is(err, ledger.ErrScheduleNotFound),
		errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case identity.IsDenied(err):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Errorf(codes.Internal, "%v", err)
}

// actor: при staff_telegram_id == 0 действует система.
func (s *AbonementService) actor(ctx context.Context, tx *gorm.DB, staffTelegramID int64) (ledger.Actor, error) {
	if staffTelegramID == 0 {
		return ledger.SystemActor(), nil
	}
	staff, err := identity.ValidateStaff(ctx, repository.NewGormStaffRepository(tx), staffTelegramID)
	if err != nil {
		return ledger.Actor{}, err
	}
	return ledger.StaffActor(staff.ID), nil
}

// userRef: пользователь по внутреннему id или по Telegram ID.
type userRef struct {
	UserID     int64 `json:"user_id"`
	TelegramID int64 `json:"telegram_id"`
}

// resolve возвращает 0, nil, если пользователь не указан.
func (r userRef) resolve(ctx context.Context, tx *gorm.DB) (int64, error) {
	if r.UserID != 0 {
		return r.UserID, nil
	}
	if r.TelegramID == 0 {
		return 0, nil
	}
	u, err := repository.NewGormUserRepository(tx).FindByTelegramID(ctx, r.TelegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("telegram user %d: %w", r.TelegramID, ledger.ErrUserNotFound)
		}
		return 0, err
	}
	return u.ID, nil
}

func (r userRef) require(ctx context.Context, tx *gorm.DB) (int64, error) {
	id, err := r.resolve(ctx, tx)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, status.Error(codes.InvalidArgument, "user_id or telegram_id is required")
	}
	return id, nil
}
