package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Leganyst/dance-studio/internal/model"
)

func TestWriteActionLog(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	validTo := time.Date(2025, 3, 31, 20, 59, 59, 0, time.UTC)
	ab := &model.GroupAbonement{
		ID:             42,
		UserID:         7,
		GroupID:        3,
		AbonementType:  model.AbonementTypeMulti,
		Status:         model.AbonementStatusActive,
		BalanceCredits: 5,
		ValidTo:        &validTo,
		AmountRub:      3200,
		Currency:       "RUB",
	}
	attID := int64(11)
	staffID := int64(2)
	entries := []model.GroupAbonementActionLog{
		{
			ActionType:   model.ActionDebitAttendance,
			CreditsDelta: -1,
			Reason:       "present",
			AttendanceID: &attID,
			ActorType:    model.ActorTypeStaff,
			ActorID:      &staffID,
			CreatedAt:    time.Date(2025, 3, 12, 16, 30, 0, 0, time.UTC),
		},
		{
			ActionType:   model.ActionSickLeaveRefund,
			CreditsDelta: 1,
			Reason:       "sick_leave",
			ActorType:    model.ActorTypeSystem,
			CreatedAt:    time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteActionLog(&buf, ab, entries, loc))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(logSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Действие", rows[0][1])
	assert.Equal(t, "12.03.2025 19:30", rows[1][0])
	assert.Equal(t, "debit_attendance", rows[1][1])
	assert.Equal(t, "-1", rows[1][2])
	assert.Equal(t, "11", rows[1][4])
	assert.Equal(t, "сотрудник #2", rows[1][6])
	assert.Equal(t, "система", rows[2][6])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Остаток занятий", "5"}, summary[5])
	assert.Equal(t, []string{"Действует с", "бессрочно"}, summary[6])
	assert.Equal(t, []string{"Действует по", "31.03.2025 23:59"}, summary[7])
}
