package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/calendar"
	"github.com/Leganyst/dance-studio/internal/ledger"
	"github.com/Leganyst/dance-studio/internal/repository"
)

type markAttendanceRequest struct {
	userRef
	ScheduleID      int64  `json:"schedule_id"`
	Status          string `json:"status"`
	AbonementID     *int64 `json:"abonement_id"`
	Comment         string `json:"comment"`
	StaffTelegramID int64  `json:"staff_telegram_id"`
}

type markAttendanceResponse struct {
	Attendance    attendanceDTO `json:"attendance"`
	Created       bool          `json:"created"`
	StatusChanged bool          `json:"status_changed"`
	Debited       bool          `json:"debited"`
}

func (s *AbonementService) MarkAttendance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodMarkAttendance, in, func(tx *gorm.DB, req *markAttendanceRequest) (any, error) {
		userID, err := req.userRef.require(ctx, tx)
		if err != nil {
			return nil, err
		}
		actor, err := s.actor(ctx, tx, req.StaffTelegramID)
		if err != nil {
			return nil, err
		}

		res, err := s.ledger.MarkAttendance(ctx, tx, ledger.MarkRequest{
			ScheduleID:  req.ScheduleID,
			UserID:      userID,
			Status:      req.Status,
			AbonementID: req.AbonementID,
			Comment:     req.Comment,
			Actor:       actor,
		})
		if err != nil {
			return nil, err
		}
		return markAttendanceResponse{
			Attendance:    mapAttendance(&res.Attendance, s.loc),
			Created:       res.Created,
			StatusChanged: res.StatusChanged,
			Debited:       res.Debited,
		}, nil
	})
}

type sickLeaveRequest struct {
	userRef
	// YYYY-MM-DD в часовом поясе студии.
	DateFrom        string `json:"date_from"`
	DateTo          string `json:"date_to"`
	Comment         string `json:"comment"`
	StaffTelegramID int64  `json:"staff_telegram_id"`
}

type sickLeaveResponse struct {
	DateFrom              string  `json:"date_from"`
	DateTo                string  `json:"date_to"`
	Days                  int     `json:"days"`
	AttendanceIDs         []int64 `json:"attendance_ids"`
	RefundedAttendanceIDs []int64 `json:"refunded_attendance_ids"`
	ExtendedAbonementIDs  []int64 `json:"extended_abonement_ids"`
	SkippedExtensionIDs   []int64 `json:"skipped_extension_ids"`
}

func (s *AbonementService) ApplySickLeave(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodApplySickLeave, in, func(tx *gorm.DB, req *sickLeaveRequest) (any, error) {
		userID, err := req.userRef.require(ctx, tx)
		if err != nil {
			return nil, err
		}
		from, err := calendar.ParseDate(req.DateFrom, s.loc)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "date_from: %v", err)
		}
		to, err := calendar.ParseDate(req.DateTo, s.loc)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "date_to: %v", err)
		}
		actor, err := s.actor(ctx, tx, req.StaffTelegramID)
		if err != nil {
			return nil, err
		}

		res, err := s.ledger.ApplySickLeave(ctx, tx, ledger.SickLeaveRequest{
			UserID:   userID,
			DateFrom: from,
			DateTo:   to,
			Comment:  req.Comment,
			Actor:    actor,
		})
		if err != nil {
			return nil, err
		}
		return sickLeaveResponse{
			DateFrom:              res.Range.From.Format(calendar.DateLayout),
			DateTo:                res.Range.To.Format(calendar.DateLayout),
			Days:                  res.Days,
			AttendanceIDs:         formatIDs(res.AttendanceIDs),
			RefundedAttendanceIDs: formatIDs(res.RefundedAttendanceIDs),
			ExtendedAbonementIDs:  formatIDs(res.ExtendedAbonementIDs),
			SkippedExtensionIDs:   formatIDs(res.SkippedExtensionIDs),
		}, nil
	})
}

type extendRequest struct {
	AbonementID     int64  `json:"abonement_id"`
	Weeks           *int   `json:"weeks"`
	Lessons         *int   `json:"lessons"`
	Reason          string `json:"reason"`
	StaffTelegramID int64  `json:"staff_telegram_id"`
}

type extendResponse struct {
	Abonement   abonementDTO `json:"abonement"`
	Weeks       int          `json:"weeks"`
	Lessons     int          `json:"lessons"`
	OldValidTo  *string      `json:"old_valid_to"`
	NewValidTo  *string      `json:"new_valid_to"`
	Reactivated bool         `json:"reactivated"`
}

// ExtendAbonement: ручное продление; выполняет только сотрудник.
func (s *AbonementService) ExtendAbonement(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodExtendAbonement, in, func(tx *gorm.DB, req *extendRequest) (any, error) {
		if req.StaffTelegramID == 0 {
			return nil, status.Error(codes.PermissionDenied, "staff_telegram_id is required")
		}
		actor, err := s.actor(ctx, tx, req.StaffTelegramID)
		if err != nil {
			return nil, err
		}

		res, err := s.ledger.ExtendAbonement(ctx, tx, ledger.ExtendRequest{
			AbonementID: req.AbonementID,
			Weeks:       req.Weeks,
			Lessons:     req.Lessons,
			Reason:      req.Reason,
			Actor:       actor,
		})
		if err != nil {
			return nil, err
		}
		return extendResponse{
			Abonement:   mapAbonement(&res.Abonement, s.loc),
			Weeks:       res.Weeks,
			Lessons:     res.Lessons,
			OldValidTo:  formatTime(res.OldValidTo, s.loc),
			NewValidTo:  formatTime(res.NewValidTo, s.loc),
			Reactivated: res.Reactivated,
		}, nil
	})
}

type rosterRequest struct {
	ScheduleID int64 `json:"schedule_id"`
}

type rosterEntryDTO struct {
	User      userDTO       `json:"user"`
	Abonement *abonementDTO `json:"abonement"`
}

type rosterResponse struct {
	ScheduleID int64            `json:"schedule_id"`
	ObjectType string           `json:"object_type"`
	Status     string           `json:"status"`
	Session    string           `json:"session"`
	Entries    []rosterEntryDTO `json:"entries"`
}

// GetRoster: кто занимается на занятии и по какому абонементу.
func (s *AbonementService) GetRoster(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodGetRoster, in, func(tx *gorm.DB, req *rosterRequest) (any, error) {
		if req.ScheduleID <= 0 {
			return nil, status.Error(codes.InvalidArgument, "schedule_id is required")
		}
		schedule, err := repository.NewGormScheduleRepository(tx).GetByID(ctx, req.ScheduleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("schedule %d: %w", req.ScheduleID, ledger.ErrScheduleNotFound)
			}
			return nil, err
		}

		entries, err := s.resolver.LoadRoster(ctx, tx, schedule)
		if err != nil {
			return nil, err
		}

		resp := rosterResponse{
			ScheduleID: schedule.ID,
			ObjectType: string(schedule.ObjectType),
			Status:     string(schedule.Status),
			Session: calendar.FormatSessionForUser(
				calendar.TimeRange{Start: schedule.StartsAt, End: schedule.EndsAt}, s.loc),
			Entries: make([]rosterEntryDTO, 0, len(entries)),
		}
		for i := range entries {
			e := rosterEntryDTO{User: mapUser(&entries[i].User)}
			if entries[i].Abonement != nil {
				ab := mapAbonement(entries[i].Abonement, s.loc)
				e.Abonement = &ab
			}
			resp.Entries = append(resp.Entries, e)
		}
		return resp, nil
	})
}

type actionLogRequest struct {
	AbonementID int64 `json:"abonement_id"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
}

type actionLogResponse struct {
	Items    []actionLogDTO `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
	HasNext  bool           `json:"has_next"`
	HasPrev  bool           `json:"has_prev"`
}

// ListActionLog: журнал абонемента постранично, от старых записей к новым.
func (s *AbonementService) ListActionLog(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return handle(s, ctx, abonementpb.MethodListActionLog, in, func(tx *gorm.DB, req *actionLogRequest) (any, error) {
		if req.AbonementID <= 0 {
			return nil, status.Error(codes.InvalidArgument, "abonement_id is required")
		}
		if _, err := repository.NewGormAbonementRepository(tx).GetByID(ctx, req.AbonementID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("abonement %d: %w", req.AbonementID, ledger.ErrAbonementNotFound)
			}
			return nil, err
		}

		rows, err := repository.NewGormActionLogRepository(tx).ListByAbonement(ctx, req.AbonementID)
		if err != nil {
			return nil, err
		}
		page := calendar.Paginate(rows, req.Page, req.PageSize)

		resp := actionLogResponse{
			Items:    make([]actionLogDTO, 0, len(page.Items)),
			Page:     page.Page,
			PageSize: page.PageSize,
			Total:    page.Total,
			HasNext:  page.HasNext,
			HasPrev:  page.HasPrev,
		}
		for i := range page.Items {
			resp.Items = append(resp.Items, mapActionLog(&page.Items[i], s.loc))
		}
		return resp, nil
	})
}
