package service

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/identity"
	"github.com/Leganyst/dance-studio/internal/repository"
	"github.com/Leganyst/dance-studio/internal/settings"
)

type getSettingRequest struct {
	// Пусто: весь каталог.
	Key            string `json:"key"`
	IncludeHistory bool   `json:"include_history"`
}

type getSettingResponse struct {
	Setting  *settings.View     `json:"setting,omitempty"`
	History  []settingChangeDTO `json:"history,omitempty"`
	Settings []settings.View    `json:"settings,omitempty"`
}

func (s *AbonementService) GetSetting(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodGetSetting, in, func(tx *gorm.DB, req *getSettingRequest) (any, error) {
		key := strings.TrimSpace(req.Key)
		if key == "" {
			specs := settings.Catalogue()
			views := make([]settings.View, 0, len(specs))
			for _, spec := range specs {
				v, err := s.store.Get(ctx, tx, spec.Key)
				if err != nil {
					return nil, err
				}
				views = append(views, v)
			}
			return getSettingResponse{Settings: views}, nil
		}

		v, err := s.store.Get(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		resp := getSettingResponse{Setting: &v}
		if req.IncludeHistory {
			changes, err := s.store.History(ctx, tx, key)
			if err != nil {
				return nil, err
			}
			resp.History = make([]settingChangeDTO, 0, len(changes))
			for i := range changes {
				resp.History = append(resp.History, mapSettingChange(&changes[i], s.loc))
			}
		}
		return resp, nil
	})
}

type updateSettingRequest struct {
	Key             string `json:"key"`
	Value           any    `json:"value"`
	Reason          string `json:"reason"`
	StaffTelegramID int64  `json:"staff_telegram_id"`
}

// UpdateSetting меняет настройку; доступно владельцу и администратору.
func (s *AbonementService) UpdateSetting(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodUpdateSetting, in, func(tx *gorm.DB, req *updateSettingRequest) (any, error) {
		staff, err := identity.ValidateStaff(ctx, repository.NewGormStaffRepository(tx), req.StaffTelegramID)
		if err != nil {
			return nil, err
		}
		if !staff.CanManageSettings() {
			return nil, identity.ErrForbidden
		}
		if strings.TrimSpace(req.Key) == "" {
			return nil, status.Error(codes.InvalidArgument, "key is required")
		}

		staffID := staff.ID
		v, err := s.store.Update(ctx, tx, strings.TrimSpace(req.Key), req.Value, &staffID, req.Reason, settings.SourceAdmin)
		if err != nil {
			if errors.Is(err, settings.ErrUnknownKey) {
				return nil, status.Errorf(codes.NotFound, "unknown setting %q", req.Key)
			}
			return nil, err
		}
		return map[string]any{"setting": v}, nil
	})
}
