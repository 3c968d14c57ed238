package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/dance-studio/internal/dbtest"
	"github.com/Leganyst/dance-studio/internal/logger"
	"github.com/Leganyst/dance-studio/internal/model"
)

var sessionAt = time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestSortBySoonestExpiry(t *testing.T) {
	later := sessionAt.Add(days(20))
	sooner := sessionAt.Add(days(5))
	abs := []model.GroupAbonement{
		{ID: 1, ValidTo: nil},
		{ID: 2, ValidTo: &later},
		{ID: 3, ValidTo: &sooner},
		{ID: 4, ValidTo: &sooner},
	}

	SortBySoonestExpiry(abs)

	ids := []int64{abs[0].ID, abs[1].ID, abs[2].ID, abs[3].ID}
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)
}

func TestResolveGroupActiveAbonement_PrefersSoonestExpiry(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	r := NewResolver(logger.Discard())

	dir := dbtest.CreateDirection(t, db, model.DirectionTypeDance)
	group := dbtest.CreateGroup(t, db, dir, 2)
	user := dbtest.CreateUser(t, db, "Anna")

	from := sessionAt.Add(-days(10))
	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Credits: 8, ValidFrom: &from,
	})
	soon := dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Credits: 2, ValidFrom: &from, ValidTo: dbtest.TimePtr(sessionAt.Add(days(3))),
	})
	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Credits: 8, ValidFrom: &from, ValidTo: dbtest.TimePtr(sessionAt.Add(days(20))),
	})

	got, err := r.ResolveGroupActiveAbonement(ctx, db, user.ID, group.ID, sessionAt)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, soon.ID, got.ID)
}

func TestResolveGroupActiveAbonement_SkipsInactiveAndOutOfWindow(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	r := NewResolver(logger.Discard())

	dir := dbtest.CreateDirection(t, db, model.DirectionTypeSport)
	group := dbtest.CreateGroup(t, db, dir, 1)
	user := dbtest.CreateUser(t, db, "Boris")

	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Status: model.AbonementStatusExpired, Credits: 4,
	})
	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Status: model.AbonementStatusPendingActivation, Credits: 4,
	})
	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Credits: 4, ValidTo: dbtest.TimePtr(sessionAt.Add(-time.Hour)),
	})
	dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{
		Credits: 4, ValidFrom: dbtest.TimePtr(sessionAt.Add(time.Hour)),
	})

	got, err := r.ResolveGroupActiveAbonement(ctx, db, user.ID, group.ID, sessionAt)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadRoster_GroupDedupesByUser(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	r := NewResolver(logger.Discard())

	dir := dbtest.CreateDirection(t, db, model.DirectionTypeDance)
	group := dbtest.CreateGroup(t, db, dir, 2)
	other := dbtest.CreateGroup(t, db, dir, 2)
	anna := dbtest.CreateUser(t, db, "Anna")
	boris := dbtest.CreateUser(t, db, "Boris")
	clara := dbtest.CreateUser(t, db, "Clara")
	dmitry := dbtest.CreateUser(t, db, "Dmitry")

	annaOpen := dbtest.CreateAbonement(t, db, anna, group, dbtest.AbonementOpts{Credits: 8})
	annaSoon := dbtest.CreateAbonement(t, db, anna, group, dbtest.AbonementOpts{
		Credits: 1, ValidTo: dbtest.TimePtr(sessionAt.Add(days(1))),
	})
	borisAb := dbtest.CreateAbonement(t, db, boris, group, dbtest.AbonementOpts{Credits: 0})
	dbtest.CreateAbonement(t, db, clara, group, dbtest.AbonementOpts{
		Status: model.AbonementStatusExpired, Credits: 3,
	})
	dbtest.CreateAbonement(t, db, dmitry, other, dbtest.AbonementOpts{Credits: 3})

	schedule := dbtest.CreateGroupSession(t, db, group, sessionAt)

	entries, err := r.LoadRoster(ctx, db, schedule)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, anna.ID, entries[0].User.ID)
	require.NotNil(t, entries[0].Abonement)
	assert.Equal(t, annaSoon.ID, entries[0].Abonement.ID)
	assert.NotEqual(t, annaOpen.ID, entries[0].Abonement.ID)

	assert.Equal(t, boris.ID, entries[1].User.ID)
	require.NotNil(t, entries[1].Abonement)
	assert.Equal(t, borisAb.ID, entries[1].Abonement.ID)
}

func TestLoadRoster_Individual(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	r := NewResolver(logger.Discard())

	student := dbtest.CreateUser(t, db, "Eva")
	schedule := dbtest.CreateIndividualSession(t, db, student, sessionAt)

	entries, err := r.LoadRoster(ctx, db, schedule)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, student.ID, entries[0].User.ID)
	assert.Nil(t, entries[0].Abonement)
}

func TestLoadRoster_Rental(t *testing.T) {
	r := NewResolver(logger.Discard())
	entries, err := r.LoadRoster(context.Background(), dbtest.New(t), &model.Schedule{
		ObjectType: model.ScheduleObjectRental,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
