package predictions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var (
	t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	qCreate     = `(?s)^INSERT\s+INTO\s+prediction_logs\s*\(user_id,\s*input_features,.*RETURNING\s+id\s*$`
	qRecent     = `(?s)^SELECT\s+id\s+FROM\s+prediction_logs\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+predicted_crop\s*=\s*\$2\s+AND\s+created_at\s*>\s*\$3.*LIMIT\s+1\s*$`
	qUserAgg    = `(?s)^SELECT\s+COUNT\(\*\),\s*COALESCE\(AVG\(confidence\),\s*0\),\s*MIN\(created_at\),\s*MAX\(created_at\)\s+FROM\s+prediction_logs\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qUserDist   = `(?s)^SELECT\s+predicted_crop,\s*COUNT\(\*\)\s+FROM\s+prediction_logs\s+WHERE\s+user_id\s*=\s*\$1\s+GROUP\s+BY.*$`
	qGlobalAgg  = `^SELECT\s+COUNT\(\*\),\s*COUNT\(DISTINCT\s+user_id\)\s+FROM\s+prediction_logs$`
	qGlobalDist = `(?s)^SELECT\s+predicted_crop,\s*COUNT\(\*\)\s+FROM\s+prediction_logs\s+GROUP\s+BY.*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := models.PredictionFeatures{N: 90, P: 42, K: 43, Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202.9}
	mock.ExpectQuery(qCreate).
		WithArgs("u-1", sqlmock.AnyArg(), "rice", 0.93, int64(120), nil, "ip", "ua", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1"))

	got, err := repo.Create(context.Background(), &models.PredictionLog{
		UserID: "u-1", Features: f, PredictedCrop: "rice", Confidence: 0.93, ProcessingMS: 120,
		IPAddress: "ip", UserAgent: "ua", CreatedAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRecent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := t0.Add(-3 * time.Second)
	mock.ExpectQuery(qRecent).WithArgs("u-1", "rice", since).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1"))
	mock.ExpectQuery(qRecent).WithArgs("u-1", "maize", since).
		WillReturnError(sql.ErrNoRows)

	id, err := repo.FindRecent(context.Background(), "u-1", "rice", since)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)

	_, err = repo.FindRecent(context.Background(), "u-1", "maize", since)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStatisticsForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qUserAgg).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "min", "max"}).AddRow(int64(3), 0.8, t0, t0.Add(time.Hour)))
	mock.ExpectQuery(qUserDist).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"predicted_crop", "count"}).AddRow("rice", int64(2)).AddRow("maize", int64(1)))

	st, err := repo.StatisticsForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalPredictions)
	assert.InDelta(t, 0.8, st.AverageConfidence, 1e-9)
	require.NotNil(t, st.LastPredictionAt)
	assert.Equal(t, t0.Add(time.Hour), *st.LastPredictionAt)
	assert.Equal(t, []models.CropCount{{Crop: "rice", Count: 2}, {Crop: "maize", Count: 1}}, st.CropDistribution)
}

func TestStatisticsForUser_NoPredictions(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qUserAgg).WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "min", "max"}).AddRow(int64(0), 0.0, nil, nil))
	mock.ExpectQuery(qUserDist).WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows([]string{"predicted_crop", "count"}))

	st, err := repo.StatisticsForUser(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Zero(t, st.TotalPredictions)
	assert.Nil(t, st.FirstPredictionAt)
	assert.Empty(t, st.CropDistribution)
}

func TestGlobalStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qGlobalAgg).
		WillReturnRows(sqlmock.NewRows([]string{"count", "users"}).AddRow(int64(10), int64(4)))
	mock.ExpectQuery(qGlobalDist).
		WillReturnRows(sqlmock.NewRows([]string{"predicted_crop", "count"}).AddRow("rice", int64(10)))

	st, err := repo.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.TotalPredictions)
	assert.Equal(t, int64(4), st.TotalUsers)
	assert.Len(t, st.CropDistribution, 1)
}

func TestGlobalStats_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qGlobalAgg).WillReturnError(errors.New("db down"))

	_, err := repo.GlobalStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
