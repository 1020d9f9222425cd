package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTutorRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var tutorDocumentColumns = []string{"id", "first_name", "last_name", "email", "location", "bio", "profile_image", "subjects", "hourly_rate", "rating", "experience", "education", "languages", "availability", "total_sessions", "total_students", "updated_at"}

func TestTutorRepositoryListDocuments(t *testing.T) {
	db, mock, cleanup := newTutorRepoMock(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	rows := sqlmock.NewRows(tutorDocumentColumns).
		AddRow("t1", "Ada", "Lovelace", "ada@example.com", "London", nil, nil, "{Math,Physics}", 20.0, 4.8, "5 years", nil, "{English}", "{}", 3, 2, time.Now()).
		AddRow("t2", "Bob", "Stone", "bob@example.com", nil, nil, nil, "{}", nil, nil, nil, nil, "{}", "{}", 0, 0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.role = 'tutor' AND u.active = TRUE ORDER BY u.created_at ASC, u.id ASC")).
		WillReturnRows(rows)

	docs, err := repo.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"Math", "Physics"}, []string(docs[0].Subjects))
	require.NotNil(t, docs[0].HourlyRate)
	assert.Equal(t, 20.0, *docs[0].HourlyRate)
	assert.Nil(t, docs[1].HourlyRate)
	assert.Nil(t, docs[1].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorRepositoryFindDocumentNotFound(t *testing.T) {
	db, mock, cleanup := newTutorRepoMock(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND u.id = $1 LIMIT 1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
