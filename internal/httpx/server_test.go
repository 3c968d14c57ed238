package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Leganyst/dance-studio/internal/dbtest"
	"github.com/Leganyst/dance-studio/internal/logger"
	"github.com/Leganyst/dance-studio/internal/model"
)

func TestHealth(t *testing.T) {
	h := NewHandler(Options{DB: dbtest.New(t), Logger: logger.Discard()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsOnlyWhenEnabled(t *testing.T) {
	off := NewHandler(Options{})
	rec := httptest.NewRecorder()
	off.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	on := NewHandler(Options{ExposeMetrics: true})
	rec = httptest.NewRecorder()
	on.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActionLogReport(t *testing.T) {
	db := dbtest.New(t)
	dir := dbtest.CreateDirection(t, db, model.DirectionTypeSport)
	group := dbtest.CreateGroup(t, db, dir, 1)
	user := dbtest.CreateUser(t, db, "Gleb")
	ab := dbtest.CreateAbonement(t, db, user, group, dbtest.AbonementOpts{Credits: 3})
	require.NoError(t, db.Create(&model.GroupAbonementActionLog{
		AbonementID:  ab.ID,
		ActionType:   model.ActionAbonementCreated,
		CreditsDelta: 4,
		ActorType:    model.ActorTypeSystem,
	}).Error)

	h := NewHandler(Options{DB: db, Location: time.UTC, Logger: logger.Discard()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/action-log.xlsx?abonement_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/action-log.xlsx?abonement_id=999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	url := "/reports/action-log.xlsx?abonement_id=" + strconv.FormatInt(ab.ID, 10)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Журнал")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "abonement_created", rows[1][1])
}
