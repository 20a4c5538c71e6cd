package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agility-scorer/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestStateRepository_LoadEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStateRepository(db, zerolog.Nop())

	mock.ExpectQuery(`SELECT payload FROM competition_state`).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateRepository_LoadCurrent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStateRepository(db, zerolog.Nop())

	stored := domain.PersistedState{
		Version:     domain.PersistedStateVersion,
		Rounds:      []domain.Round{{ID: "r1", Name: "Agility 1", Abbreviation: "Agil"}},
		CourseTimes: map[string]domain.CourseTime{"r1": {SCT: 40, MCT: 56}},
		Competitors: []domain.Competitor{{ID: "c1", RoundID: "r1", Size: domain.SizeLarge, DogName: "Rex", RunOrder: 1}},
		LiveRoundID: "r1",
	}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM competition_state`).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "r1", st.LiveRoundID)
	assert.Equal(t, "Rex", st.Competitors[0].DogName)
	assert.Equal(t, 56.0, st.CourseTimes["r1"].MCT)
}

func TestStateRepository_LoadIncompatible(t *testing.T) {
	cases := map[string]string{
		"no version":  `{"competitors":[],"courseTimeConfig":{}}`,
		"old version": `{"version":1,"competitors":[]}`,
		"garbage":     `not json`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewStateRepository(db, zerolog.Nop())
			mock.ExpectQuery(`SELECT payload FROM competition_state`).
				WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(payload)))

			_, err := repo.Load(context.Background())
			assert.ErrorIs(t, err, domain.ErrIncompatibleState)
		})
	}
}

func TestStateRepository_LoadError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStateRepository(db, zerolog.Nop())
	mock.ExpectQuery(`SELECT payload FROM competition_state`).WillReturnError(errors.New("disk I/O error"))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrIncompatibleState)
}

func TestStateRepository_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStateRepository(db, zerolog.Nop())
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	st := domain.PersistedState{Version: domain.PersistedStateVersion, CourseTimes: map[string]domain.CourseTime{}}
	payload, err := json.Marshal(st)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO competition_state`).
		WithArgs(payload, fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), st))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateRepository_Clear(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStateRepository(db, zerolog.Nop())
	mock.ExpectExec(`DELETE FROM competition_state`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
