// Package dbtest поднимает изолированную in-memory sqlite базу для тестов
// и умеет заполнять её справочными данными.
package dbtest

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/db"
	"github.com/Leganyst/dance-studio/internal/model"
)

// New открывает новую базу с уже применёнными миграциями.
// У каждой базы своё имя, так что тесты не видят данные друг друга.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// одно соединение: in-memory база живёт, пока оно открыто
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(gdb))
	return gdb
}

func IntPtr(v int) *int { return &v }

func Int64Ptr(v int64) *int64 { return &v }

func TimePtr(v time.Time) *time.Time { return &v }

var nextTelegramID atomic.Int64

func telegramID() int64 {
	return 1_000_000 + nextTelegramID.Add(1)
}

func CreateDirection(t *testing.T, gdb *gorm.DB, dt model.DirectionType) *model.Direction {
	t.Helper()
	d := &model.Direction{
		Title:         string(dt) + " direction",
		DirectionType: dt,
		IsActive:      true,
	}
	require.NoError(t, gdb.Create(d).Error)
	return d
}

// CreateGroup создаёт группу; lessonsPerWeek == 0: не настроено.
func CreateGroup(t *testing.T, gdb *gorm.DB, direction *model.Direction, lessonsPerWeek int) *model.Group {
	t.Helper()
	g := &model.Group{
		DirectionID: direction.ID,
		Name:        direction.Title + " group",
		Capacity:    12,
		IsActive:    true,
	}
	if lessonsPerWeek > 0 {
		g.LessonsPerWeek = IntPtr(lessonsPerWeek)
	}
	require.NoError(t, gdb.Create(g).Error)
	g.Direction = direction
	return g
}

func CreateUser(t *testing.T, gdb *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{
		TelegramID:  telegramID(),
		DisplayName: name,
		Username:    "user" + name,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func CreateStaff(t *testing.T, gdb *gorm.DB, position model.StaffPosition, active bool) *model.Staff {
	t.Helper()
	s := &model.Staff{
		TelegramID:  telegramID(),
		DisplayName: string(position),
		Position:    position,
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(s).Error)
	if !active {
		// gorm не пишет false из-за default:true, обновляем отдельно
		require.NoError(t, gdb.Model(s).Update("is_active", false).Error)
		s.IsActive = false
	}
	return s
}

func CreateGroupSession(t *testing.T, gdb *gorm.DB, group *model.Group, startsAt time.Time) *model.Schedule {
	t.Helper()
	s := &model.Schedule{
		ObjectType: model.ScheduleObjectGroup,
		GroupID:    Int64Ptr(group.ID),
		StartsAt:   startsAt.UTC(),
		EndsAt:     startsAt.Add(time.Hour).UTC(),
		Status:     model.ScheduleStatusScheduled,
	}
	require.NoError(t, gdb.Create(s).Error)
	return s
}

func CreateIndividualSession(t *testing.T, gdb *gorm.DB, student *model.User, startsAt time.Time) *model.Schedule {
	t.Helper()
	s := &model.Schedule{
		ObjectType:    model.ScheduleObjectIndividual,
		StudentUserID: Int64Ptr(student.ID),
		StartsAt:      startsAt.UTC(),
		EndsAt:        startsAt.Add(time.Hour).UTC(),
		Status:        model.ScheduleStatusScheduled,
	}
	require.NoError(t, gdb.Create(s).Error)
	return s
}

func CancelSession(t *testing.T, gdb *gorm.DB, s *model.Schedule) {
	t.Helper()
	require.NoError(t, gdb.Model(s).Update("status", model.ScheduleStatusCancelled).Error)
	s.Status = model.ScheduleStatusCancelled
}

// AbonementOpts: необязательные поля абонемента.
type AbonementOpts struct {
	Type      model.AbonementType
	Status    model.AbonementStatus
	Credits   int
	ValidFrom *time.Time
	ValidTo   *time.Time
	BundleID  string
}

func CreateAbonement(t *testing.T, gdb *gorm.DB, user *model.User, group *model.Group, opts AbonementOpts) *model.GroupAbonement {
	t.Helper()
	if opts.Type == "" {
		opts.Type = model.AbonementTypeMulti
	}
	if opts.Status == "" {
		opts.Status = model.AbonementStatusActive
	}
	if opts.BundleID == "" {
		opts.BundleID = uuid.NewString()
	}
	a := &model.GroupAbonement{
		UserID:         user.ID,
		GroupID:        group.ID,
		AbonementType:  opts.Type,
		BundleID:       opts.BundleID,
		BundleSize:     1,
		BalanceCredits: opts.Credits,
		Status:         opts.Status,
		Currency:       "RUB",
	}
	if opts.ValidFrom != nil {
		v := opts.ValidFrom.UTC()
		a.ValidFrom = &v
	}
	if opts.ValidTo != nil {
		v := opts.ValidTo.UTC()
		a.ValidTo = &v
	}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

// Reload перечитывает абонемент из базы.
func Reload(t *testing.T, gdb *gorm.DB, a *model.GroupAbonement) *model.GroupAbonement {
	t.Helper()
	var fresh model.GroupAbonement
	require.NoError(t, gdb.First(&fresh, "id = ?", a.ID).Error)
	return &fresh
}

func CountLogs(t *testing.T, gdb *gorm.DB, abonementID int64, action model.ActionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&model.GroupAbonementActionLog{}).
		Where("abonement_id = ? AND action_type = ?", abonementID, action).
		Count(&n).Error)
	return n
}
