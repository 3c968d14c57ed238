package service

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/ledger"
	"github.com/Leganyst/dance-studio/internal/pricing"
	"github.com/Leganyst/dance-studio/internal/repository"
)

type registerUserRequest struct {
	TelegramID   int64  `json:"telegram_id"`
	DisplayName  string `json:"display_name"`
	Username     string `json:"username"`
	ContactPhone string `json:"contact_phone"`
}

// RegisterUser создаёт клиента по Telegram ID или обновляет его контакты.
func (s *AbonementService) RegisterUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodRegisterUser, in, func(tx *gorm.DB, req *registerUserRequest) (any, error) {
		if req.TelegramID <= 0 {
			return nil, status.Error(codes.InvalidArgument, "telegram_id is required")
		}
		u, err := repository.NewGormUserRepository(tx).
			UpsertUser(ctx, req.TelegramID, strings.TrimSpace(req.DisplayName), req.Username, req.ContactPhone)
		if err != nil {
			return nil, err
		}
		return map[string]any{"user": mapUser(u)}, nil
	})
}

type quoteRequest struct {
	userRef
	GroupID              int64   `json:"group_id"`
	AbonementType        string  `json:"abonement_type"`
	BundleGroupIDs       []int64 `json:"bundle_group_ids"`
	MultiLessonsPerGroup *int    `json:"multi_lessons_per_group"`
}

func (s *AbonementService) quote(ctx context.Context, tx *gorm.DB, req *quoteRequest, userID int64) (*pricing.GroupBookingQuote, error) {
	cfg, err := pricing.LoadConfig(ctx, tx, s.store)
	if err != nil {
		return nil, err
	}
	return s.engine.QuoteGroupBooking(ctx, tx, cfg, pricing.QuoteRequest{
		UserID:               userID,
		GroupID:              req.GroupID,
		AbonementType:        req.AbonementType,
		BundleGroupIDs:       req.BundleGroupIDs,
		MultiLessonsPerGroup: req.MultiLessonsPerGroup,
	})
}

type quoteResponse struct {
	Quote       pricing.SerializedQuote `json:"quote"`
	PriceSource string                  `json:"price_source,omitempty"`
}

// QuoteGroupBooking считает стоимость абонемента, ничего не сохраняя.
func (s *AbonementService) QuoteGroupBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodQuoteGroupBooking, in, func(tx *gorm.DB, req *quoteRequest) (any, error) {
		userID, err := req.userRef.resolve(ctx, tx)
		if err != nil {
			return nil, err
		}
		q, err := s.quote(ctx, tx, req, userID)
		if err != nil {
			return nil, err
		}
		return quoteResponse{Quote: pricing.SerializeQuote(q), PriceSource: string(q.PriceSource)}, nil
	})
}

type activateRequest struct {
	quoteRequest
	// Предложение, которое видел клиент; если передано, цена должна совпасть.
	Quote           *pricing.SerializedQuote `json:"quote"`
	PaymentID       string                   `json:"payment_id"`
	StaffTelegramID int64                    `json:"staff_telegram_id"`
}

type activateResponse struct {
	Quote      pricing.SerializedQuote `json:"quote"`
	Abonements []abonementDTO          `json:"abonements"`
}

// ActivateAbonement пересчитывает предложение на сервере и создаёт абонементы.
func (s *AbonementService) ActivateAbonement(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodActivateAbonement, in, func(tx *gorm.DB, req *activateRequest) (any, error) {
		userID, err := req.userRef.require(ctx, tx)
		if err != nil {
			return nil, err
		}
		actor, err := s.actor(ctx, tx, req.StaffTelegramID)
		if err != nil {
			return nil, err
		}

		q, err := s.quote(ctx, tx, &req.quoteRequest, userID)
		if err != nil {
			return nil, err
		}
		if req.Quote != nil {
			seen, err := pricing.ParseSerializedQuote(*req.Quote)
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "bad quote: %v", err)
			}
			if !q.SameTerms(seen) {
				return nil, status.Error(codes.FailedPrecondition, "Price has changed, request a new quote.")
			}
		}

		abs, err := s.ledger.ActivateFromQuote(ctx, tx, ledger.ActivationRequest{
			UserID:    userID,
			Quote:     q,
			PaymentID: req.PaymentID,
			Actor:     actor,
		})
		if err != nil {
			return nil, err
		}
		return activateResponse{Quote: pricing.SerializeQuote(q), Abonements: mapAbonements(abs, s.loc)}, nil
	})
}

type confirmPaymentRequest struct {
	BundleID        string `json:"bundle_id"`
	PaymentID       string `json:"payment_id"`
	StaffTelegramID int64  `json:"staff_telegram_id"`
}

func (s *AbonementService) ConfirmPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodConfirmPayment, in, func(tx *gorm.DB, req *confirmPaymentRequest) (any, error) {
		actor, err := s.actor(ctx, tx, req.StaffTelegramID)
		if err != nil {
			return nil, err
		}
		abs, err := s.ledger.ConfirmPayment(ctx, tx, req.BundleID, req.PaymentID, actor)
		if err != nil {
			return nil, err
		}
		return map[string]any{"abonements": mapAbonements(abs, s.loc)}, nil
	})
}

type expireRequest struct{}

// ExpireAbonements закрывает абонементы с истёкшим сроком.
func (s *AbonementService) ExpireAbonements(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodExpireAbonements, in, func(tx *gorm.DB, _ *expireRequest) (any, error) {
		ids, err := s.ledger.ExpireOverdue(ctx, tx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"expired_ids": formatIDs(ids)}, nil
	})
}
