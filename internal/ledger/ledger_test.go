package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/dbtest"
	"github.com/Leganyst/dance-studio/internal/logger"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/settings"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// 19:00 по Москве.
var sessionAt = time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	store  *settings.Store
	ledger *Ledger
	loc    *time.Location
	staff  *model.Staff
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	db := dbtest.New(t)
	store := settings.NewStore(logger.Discard())
	return &fixture{
		ctx:    context.Background(),
		db:     db,
		store:  store,
		ledger: New(logger.Discard(), store, roster.NewResolver(logger.Discard()), loc, func() time.Time { return testNow }),
		loc:    loc,
		staff:  dbtest.CreateStaff(t, db, model.StaffPositionTeacher, true),
	}
}

func (f *fixture) actor() Actor { return StaffActor(f.staff.ID) }

// groupWithStudent: танцевальная группа 2 раза в неделю, студент и занятие в sessionAt.
func (f *fixture) groupWithStudent(t *testing.T) (*model.Group, *model.User, *model.Schedule) {
	t.Helper()
	dir := dbtest.CreateDirection(t, f.db, model.DirectionTypeDance)
	group := dbtest.CreateGroup(t, f.db, dir, 2)
	user := dbtest.CreateUser(t, f.db, "Anna")
	session := dbtest.CreateGroupSession(t, f.db, group, sessionAt)
	return group, user, session
}

func (f *fixture) abonement(t *testing.T, user *model.User, group *model.Group, credits int) *model.GroupAbonement {
	t.Helper()
	return dbtest.CreateAbonement(t, f.db, user, group, dbtest.AbonementOpts{
		Credits:   credits,
		ValidFrom: dbtest.TimePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, f.loc)),
		ValidTo:   dbtest.TimePtr(time.Date(2025, 3, 31, 23, 59, 59, 999999000, f.loc)),
	})
}

func (f *fixture) mark(t *testing.T, s *model.Schedule, u *model.User, status string) *MarkResult {
	t.Helper()
	res, err := f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{
		ScheduleID: s.ID,
		UserID:     u.ID,
		Status:     status,
		Actor:      f.actor(),
	})
	require.NoError(t, err)
	return res
}

func requireLedgerError(t *testing.T, err error) *Error {
	t.Helper()
	var le *Error
	require.ErrorAs(t, err, &le)
	return le
}

func countAllLogs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.GroupAbonementActionLog{}).Count(&n).Error)
	return n
}

func TestActor(t *testing.T) {
	var zero Actor
	assert.False(t, zero.IsStaff())
	assert.Equal(t, model.ActorTypeSystem, zero.Type())
	assert.Equal(t, "system", zero.String())

	a := StaffActor(7)
	id, ok := a.StaffID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "staff:7", a.String())

	typ, actorID := a.columns()
	assert.Equal(t, model.ActorTypeStaff, typ)
	require.NotNil(t, actorID)
	assert.Equal(t, int64(7), *actorID)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.LedgerState
		want     bool
	}{
		{model.LedgerStateUnmarked, model.LedgerStateMarked, true},
		{model.LedgerStateMarked, model.LedgerStateDebited, true},
		{model.LedgerStateMarked, model.LedgerStateSickRefunded, true},
		{model.LedgerStateDebited, model.LedgerStateSickRefunded, true},
		{model.LedgerStateDebited, model.LedgerStateMarked, false},
		{model.LedgerStateSickRefunded, model.LedgerStateDebited, false},
		{model.LedgerStateUnmarked, model.LedgerStateDebited, false},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.want {
			t.Fatalf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestMarkAttendance_SickDoesNotDebit(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 5)

	res, err := f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{
		ScheduleID:  session.ID,
		UserID:      user.ID,
		Status:      "sick",
		AbonementID: &ab.ID,
		Actor:       f.actor(),
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.DebitAttempted)
	assert.True(t, res.Debited)
	assert.Equal(t, 5, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(0), countAllLogs(t, f.db))
	assert.Equal(t, model.LedgerStateMarked, res.Attendance.LedgerState)
}

func TestMarkAttendance_PresentDebitsOnce(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 1)

	first := f.mark(t, session, user, "present")
	require.True(t, first.Debited)
	require.NotNil(t, first.Attendance.AbonementID)
	assert.Equal(t, ab.ID, *first.Attendance.AbonementID)
	assert.Equal(t, model.LedgerStateDebited, first.Attendance.LedgerState)
	assert.Equal(t, 0, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(1), dbtest.CountLogs(t, f.db, ab.ID, model.ActionDebitAttendance))

	var log model.GroupAbonementActionLog
	require.NoError(t, f.db.First(&log, "abonement_id = ?", ab.ID).Error)
	assert.Equal(t, -1, log.CreditsDelta)
	assert.Equal(t, model.ActorTypeStaff, log.ActorType)
	require.NotNil(t, log.AttendanceID)
	assert.Equal(t, first.Attendance.ID, *log.AttendanceID)

	second := f.mark(t, session, user, "present")
	assert.False(t, second.Created)
	assert.False(t, second.DebitAttempted)
	assert.Equal(t, 0, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(1), dbtest.CountLogs(t, f.db, ab.ID, model.ActionDebitAttendance))
}

func TestMarkAttendance_StatusChangeAfterDebit(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 3)

	f.mark(t, session, user, "present")
	res := f.mark(t, session, user, "late")

	assert.True(t, res.StatusChanged)
	assert.True(t, res.DebitAttempted)
	assert.True(t, res.Debited)
	assert.Equal(t, 2, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(1), dbtest.CountLogs(t, f.db, ab.ID, model.ActionDebitAttendance))
}

func TestMarkAttendance_NoCredits(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 0)

	res := f.mark(t, session, user, "present")

	assert.True(t, res.DebitAttempted)
	assert.False(t, res.Debited)
	assert.Equal(t, model.LedgerStateMarked, res.Attendance.LedgerState)
	assert.Equal(t, 0, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(0), countAllLogs(t, f.db))
}

func TestMarkAttendance_NoAbonement(t *testing.T) {
	f := newFixture(t)
	_, user, session := f.groupWithStudent(t)

	res := f.mark(t, session, user, "absent")

	assert.True(t, res.Created)
	assert.False(t, res.Debited)
	assert.Nil(t, res.Attendance.AbonementID)
}

func TestMarkAttendance_DebitDisabled(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 4)

	_, err := f.store.Update(f.ctx, f.db, settings.KeyAttendanceDebit, false, nil, "test", "")
	require.NoError(t, err)

	res := f.mark(t, session, user, "present")

	assert.False(t, res.Debited)
	assert.Equal(t, 4, dbtest.Reload(t, f.db, ab).BalanceCredits)
	assert.Equal(t, int64(0), dbtest.CountLogs(t, f.db, ab.ID, model.ActionDebitAttendance))
}

func TestMarkAttendance_Rejections(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	other := dbtest.CreateUser(t, f.db, "Boris")
	foreign := f.abonement(t, other, group, 4)

	_, err := f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: session.ID, UserID: user.ID, Status: "dancing"})
	requireLedgerError(t, err)

	_, err = f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: session.ID, UserID: user.ID, Status: "present", AbonementID: &foreign.ID})
	le := requireLedgerError(t, err)
	assert.Contains(t, le.Message, "another user")

	_, err = f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: session.ID + 100, UserID: user.ID, Status: "present"})
	require.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: session.ID, UserID: user.ID + 100, Status: "present"})
	require.ErrorIs(t, err, ErrUserNotFound)

	cancelled := dbtest.CreateGroupSession(t, f.db, group, sessionAt.Add(48*time.Hour))
	dbtest.CancelSession(t, f.db, cancelled)
	_, err = f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: cancelled.ID, UserID: user.ID, Status: "present"})
	requireLedgerError(t, err)

	individual := dbtest.CreateIndividualSession(t, f.db, other, sessionAt)
	_, err = f.ledger.MarkAttendance(f.ctx, f.db, MarkRequest{ScheduleID: individual.ID, UserID: user.ID, Status: "present"})
	requireLedgerError(t, err)
}

func TestDebitForAttendance_Repeat(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 2)

	res := f.mark(t, session, user, "present")

	ok, err := f.ledger.DebitForAttendance(f.ctx, f.db, res.Attendance.ID, SystemActor())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, dbtest.Reload(t, f.db, ab).BalanceCredits)

	_, err = f.ledger.DebitForAttendance(f.ctx, f.db, res.Attendance.ID+100, SystemActor())
	require.ErrorIs(t, err, ErrAttendanceNotFound)
}

func TestDebitForAttendance_LegacyLogCountsAsDebited(t *testing.T) {
	f := newFixture(t)
	group, user, session := f.groupWithStudent(t)
	ab := f.abonement(t, user, group, 2)

	att := &model.Attendance{
		ScheduleID:  session.ID,
		UserID:      user.ID,
		Status:      model.AttendanceStatusPresent,
		AbonementID: &ab.ID,
		LedgerState: model.LedgerStateMarked,
		MarkedAt:    testNow,
	}
	require.NoError(t, f.db.Create(att).Error)
	require.NoError(t, f.db.Create(&model.GroupAbonementActionLog{
		AbonementID:  ab.ID,
		ActionType:   model.ActionDebitAttendance,
		CreditsDelta: -1,
		AttendanceID: &att.ID,
		ActorType:    model.ActorTypeSystem,
	}).Error)

	ok, err := f.ledger.DebitForAttendance(f.ctx, f.db, att.ID, SystemActor())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, dbtest.Reload(t, f.db, ab).BalanceCredits)
}
