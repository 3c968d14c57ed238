package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/gorm"

	abonementpb "github.com/Leganyst/dance-studio/internal/api/abonement/v1"
	"github.com/Leganyst/dance-studio/internal/dbtest"
	"github.com/Leganyst/dance-studio/internal/ledger"
	"github.com/Leganyst/dance-studio/internal/logger"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/pricing"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/settings"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	ctx    context.Context
	db     *gorm.DB
	store  *settings.Store
	client *abonementpb.Client
	admin  *model.Staff
	coach  *model.Staff
}

func newEnv(t *testing.T) *env {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	db := dbtest.New(t)
	log := logger.Discard()
	now := func() time.Time { return testNow }
	store := settings.NewStore(log)
	resolver := roster.NewResolver(log)

	svc := NewAbonementService(Deps{
		DB:       db,
		Logger:   log,
		Location: loc,
		Store:    store,
		Engine:   pricing.NewEngine(log, loc, now),
		Ledger:   ledger.New(log, store, resolver, loc, now),
		Resolver: resolver,
	})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	abonementpb.RegisterAbonementServiceServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &env{
		ctx:    context.Background(),
		db:     db,
		store:  store,
		client: abonementpb.NewClient(conn),
		admin:  dbtest.CreateStaff(t, db, model.StaffPositionAdmin, true),
		coach:  dbtest.CreateStaff(t, db, model.StaffPositionTeacher, true),
	}
}

func (e *env) call(method string, req, resp any) error {
	return e.client.Call(e.ctx, method, req, resp)
}

func requireCode(t *testing.T, err error, code codes.Code) *status.Status {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status, got %v", err)
	}
	if st.Code() != code {
		t.Fatalf("expected code %s, got %s: %s", code, st.Code(), st.Message())
	}
	return st
}

func TestAbonementService_PurchaseAndAttendanceFlow(t *testing.T) {
	e := newEnv(t)
	_, err := e.store.Update(e.ctx, e.db, settings.KeyMultiSinglePrices, `{"dance":{"8":3200}}`, nil, "test", "")
	require.NoError(t, err)

	dir := dbtest.CreateDirection(t, e.db, model.DirectionTypeDance)
	group := dbtest.CreateGroup(t, e.db, dir, 2)
	session := dbtest.CreateGroupSession(t, e.db, group, time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC))

	var reg struct {
		User userDTO `json:"user"`
	}
	require.NoError(t, e.call(abonementpb.MethodRegisterUser, map[string]any{
		"telegram_id":  int64(777001),
		"display_name": "Дарья",
		"username":     "@darya",
	}, &reg))
	assert.Equal(t, "darya", reg.User.Username)

	var quoted quoteResponse
	require.NoError(t, e.call(abonementpb.MethodQuoteGroupBooking, map[string]any{
		"telegram_id":    int64(777001),
		"group_id":       group.ID,
		"abonement_type": "multi",
	}, &quoted))
	assert.Equal(t, 3200, quoted.Quote.Amount)
	assert.Equal(t, 8, quoted.Quote.LessonsPerGroup)
	assert.Equal(t, "single_matrix", quoted.PriceSource)

	var activated activateResponse
	require.NoError(t, e.call(abonementpb.MethodActivateAbonement, map[string]any{
		"user_id":        reg.User.ID,
		"group_id":       group.ID,
		"abonement_type": "multi",
		"quote":          quoted.Quote,
	}, &activated))
	require.Len(t, activated.Abonements, 1)
	ab := activated.Abonements[0]
	assert.Equal(t, "pending_activation", ab.Status)
	assert.Equal(t, 8, ab.BalanceCredits)

	var confirmed struct {
		Abonements []abonementDTO `json:"abonements"`
	}
	require.NoError(t, e.call(abonementpb.MethodConfirmPayment, map[string]any{
		"bundle_id":  ab.BundleID,
		"payment_id": "yk-1",
	}, &confirmed))
	require.Len(t, confirmed.Abonements, 1)
	assert.Equal(t, "active", confirmed.Abonements[0].Status)

	var marked markAttendanceResponse
	require.NoError(t, e.call(abonementpb.MethodMarkAttendance, map[string]any{
		"schedule_id":       session.ID,
		"user_id":           reg.User.ID,
		"status":            "present",
		"staff_telegram_id": e.coach.TelegramID,
	}, &marked))
	assert.True(t, marked.Debited)
	assert.Equal(t, "debited", marked.Attendance.LedgerState)
	require.NotNil(t, marked.Attendance.MarkedByStaffID)
	assert.Equal(t, e.coach.ID, *marked.Attendance.MarkedByStaffID)

	var roster rosterResponse
	require.NoError(t, e.call(abonementpb.MethodGetRoster, map[string]any{"schedule_id": session.ID}, &roster))
	assert.Equal(t, "Среда, 12.03.2025, 19:00–20:00", roster.Session)
	require.Len(t, roster.Entries, 1)
	require.NotNil(t, roster.Entries[0].Abonement)
	assert.Equal(t, 7, roster.Entries[0].Abonement.BalanceCredits)

	var logs actionLogResponse
	require.NoError(t, e.call(abonementpb.MethodListActionLog, map[string]any{
		"abonement_id": ab.ID,
		"page_size":    2,
	}, &logs))
	assert.Equal(t, 3, logs.Total)
	assert.True(t, logs.HasNext)
	require.Len(t, logs.Items, 2)
	assert.Equal(t, "abonement_created", logs.Items[0].ActionType)
	assert.Equal(t, "payment_confirmed", logs.Items[1].ActionType)
}

func TestAbonementService_ActivateRejectsStaleQuote(t *testing.T) {
	e := newEnv(t)
	dir := dbtest.CreateDirection(t, e.db, model.DirectionTypeDance)
	group := dbtest.CreateGroup(t, e.db, dir, 2)
	user := dbtest.CreateUser(t, e.db, "Ira")

	var quoted quoteResponse
	require.NoError(t, e.call(abonementpb.MethodQuoteGroupBooking, map[string]any{
		"user_id":        user.ID,
		"group_id":       group.ID,
		"abonement_type": "single",
	}, &quoted))

	require.NoError(t, e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":               settings.KeySingleVisitPrice,
		"value":             quoted.Quote.Amount + 100,
		"reason":            "новый прайс",
		"staff_telegram_id": e.admin.TelegramID,
	}, nil))

	err := e.call(abonementpb.MethodActivateAbonement, map[string]any{
		"user_id":        user.ID,
		"group_id":       group.ID,
		"abonement_type": "single",
		"quote":          quoted.Quote,
	}, nil)
	requireCode(t, err, codes.FailedPrecondition)

	var n int64
	require.NoError(t, e.db.Model(&model.GroupAbonement{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestAbonementService_ErrorMapping(t *testing.T) {
	e := newEnv(t)
	dance := dbtest.CreateGroup(t, e.db, dbtest.CreateDirection(t, e.db, model.DirectionTypeDance), 2)
	sport := dbtest.CreateGroup(t, e.db, dbtest.CreateDirection(t, e.db, model.DirectionTypeSport), 2)
	user := dbtest.CreateUser(t, e.db, "Oleg")

	err := e.call(abonementpb.MethodQuoteGroupBooking, map[string]any{
		"group_id":         dance.ID,
		"abonement_type":   "multi",
		"bundle_group_ids": []int64{dance.ID, sport.ID},
	}, nil)
	st := requireCode(t, err, codes.InvalidArgument)
	assert.Equal(t, "Cannot mix sport and dance groups in one abonement bundle.", st.Message())

	err = e.call(abonementpb.MethodMarkAttendance, map[string]any{
		"schedule_id": 9999,
		"user_id":     user.ID,
		"status":      "present",
	}, nil)
	requireCode(t, err, codes.NotFound)

	err = e.call(abonementpb.MethodMarkAttendance, map[string]any{
		"schedule_id": 1,
		"status":      "present",
	}, nil)
	requireCode(t, err, codes.InvalidArgument)

	err = e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":   settings.KeySickLeaveMaxDays,
		"value": 10,
	}, nil)
	requireCode(t, err, codes.PermissionDenied)

	err = e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":               settings.KeySickLeaveMaxDays,
		"value":             10,
		"staff_telegram_id": e.coach.TelegramID,
	}, nil)
	requireCode(t, err, codes.PermissionDenied)

	err = e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":               "no.such.key",
		"value":             10,
		"staff_telegram_id": e.admin.TelegramID,
	}, nil)
	requireCode(t, err, codes.NotFound)

	err = e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":               settings.KeySickLeaveMaxDays,
		"value":             1000,
		"staff_telegram_id": e.admin.TelegramID,
	}, nil)
	requireCode(t, err, codes.InvalidArgument)

	err = e.call(abonementpb.MethodExtendAbonement, map[string]any{
		"abonement_id": 1,
		"weeks":        1,
	}, nil)
	requireCode(t, err, codes.PermissionDenied)
}

func TestAbonementService_SickLeaveAndSettings(t *testing.T) {
	e := newEnv(t)
	dir := dbtest.CreateDirection(t, e.db, model.DirectionTypeSport)
	group := dbtest.CreateGroup(t, e.db, dir, 1)
	user := dbtest.CreateUser(t, e.db, "Lena")
	validTo := time.Date(2025, 3, 31, 20, 59, 59, 0, time.UTC)
	ab := dbtest.CreateAbonement(t, e.db, user, group, dbtest.AbonementOpts{
		Credits:   4,
		ValidFrom: dbtest.TimePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		ValidTo:   &validTo,
	})
	dbtest.CreateGroupSession(t, e.db, group, time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC))

	require.NoError(t, e.call(abonementpb.MethodUpdateSetting, map[string]any{
		"key":               settings.KeySickLeaveMaxDays,
		"value":             14,
		"staff_telegram_id": e.admin.TelegramID,
	}, nil))

	var got getSettingResponse
	require.NoError(t, e.call(abonementpb.MethodGetSetting, map[string]any{
		"key":             settings.KeySickLeaveMaxDays,
		"include_history": true,
	}, &got))
	require.NotNil(t, got.Setting)
	assert.EqualValues(t, 14, got.Setting.Value)
	assert.False(t, got.Setting.IsDefault)
	require.Len(t, got.History, 1)
	assert.Equal(t, settings.SourceAdmin, got.History[0].Source)

	var res sickLeaveResponse
	require.NoError(t, e.call(abonementpb.MethodApplySickLeave, map[string]any{
		"user_id":           user.ID,
		"date_from":         "2025-03-11",
		"date_to":           "2025-03-13",
		"staff_telegram_id": e.admin.TelegramID,
	}, &res))
	assert.Equal(t, 3, res.Days)
	assert.Len(t, res.AttendanceIDs, 1)
	assert.Empty(t, res.RefundedAttendanceIDs)
	assert.Equal(t, []int64{ab.ID}, res.ExtendedAbonementIDs)

	fresh := dbtest.Reload(t, e.db, ab)
	assert.True(t, fresh.ValidTo.Equal(validTo.Add(72*time.Hour)))

	err := e.call(abonementpb.MethodApplySickLeave, map[string]any{
		"user_id":   user.ID,
		"date_from": "2025-03-01",
		"date_to":   "2025-03-20",
	}, nil)
	st := requireCode(t, err, codes.InvalidArgument)
	assert.Equal(t, "Sick leave cannot be longer than 14 days.", st.Message())

	var all getSettingResponse
	require.NoError(t, e.call(abonementpb.MethodGetSetting, map[string]any{}, &all))
	assert.Len(t, all.Settings, len(settings.Catalogue()))
}

func TestAbonementService_ExpireAbonements(t *testing.T) {
	e := newEnv(t)
	group := dbtest.CreateGroup(t, e.db, dbtest.CreateDirection(t, e.db, model.DirectionTypeDance), 2)
	user := dbtest.CreateUser(t, e.db, "Sasha")
	ab := dbtest.CreateAbonement(t, e.db, user, group, dbtest.AbonementOpts{
		Credits: 1,
		ValidTo: dbtest.TimePtr(testNow.Add(-24 * time.Hour)),
	})

	var resp struct {
		ExpiredIDs []int64 `json:"expired_ids"`
	}
	require.NoError(t, e.call(abonementpb.MethodExpireAbonements, nil, &resp))
	assert.Equal(t, []int64{ab.ID}, resp.ExpiredIDs)

	var ext extendResponse
	require.NoError(t, e.call(abonementpb.MethodExtendAbonement, map[string]any{
		"abonement_id":      ab.ID,
		"lessons":           4,
		"staff_telegram_id": e.admin.TelegramID,
	}, &ext))
	assert.True(t, ext.Reactivated)
	assert.Equal(t, 2, ext.Weeks)
	assert.Equal(t, 5, ext.Abonement.BalanceCredits)
	assert.Equal(t, "active", ext.Abonement.Status)
}
