package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	apperrors "github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpRepository_Create(t *testing.T) {
	due := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	t.Run("inserts", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := NewFollowUpRepository(mockDB.DB)

		mockDB.ExpectQuery("INSERT INTO follow_ups").
			WithArgs(testutil.AnyUUID{}, nil, "jane@example.com", due).
			WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

		f := &domain.FollowUp{Email: "jane@example.com", DueAt: due}
		created, err := repo.Create(context.Background(), f)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, f.ID)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("existing email is not created", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := NewFollowUpRepository(mockDB.DB)

		mockDB.ExpectQuery("ON CONFLICT (email) DO NOTHING").
			WillReturnRows(testutil.MockRows("created_at"))

		created, err := repo.Create(context.Background(), &domain.FollowUp{Email: "jane@example.com", DueAt: due})
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestFollowUpRepository_ListDue(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewFollowUpRepository(mockDB.DB)
	now := time.Now().UTC()

	mockDB.ExpectQuery("WHERE sent_at IS NULL AND due_at <= $1 AND attempts < $2").
		WithArgs(now, 5, 50).
		WillReturnRows(testutil.MockRows("id", "submission_id", "email", "due_at", "sent_at", "attempts", "last_error", "created_at").
			AddRow("f-1", nil, "a@example.com", now.Add(-time.Hour), nil, 0, nil, now).
			AddRow("f-2", "s-2", "b@example.com", now.Add(-time.Minute), nil, 2, "throttled", now))

	due, err := repo.ListDue(context.Background(), now, 50, 5)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Nil(t, due[0].SubmissionID)
	assert.Equal(t, "s-2", *due[1].SubmissionID)
	assert.Equal(t, 2, due[1].Attempts)
	assert.Equal(t, "throttled", *due[1].LastError)
	mockDB.ExpectationsWereMet(t)
}

func TestFollowUpRepository_Mark(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := NewFollowUpRepository(mockDB.DB)
	sentAt := time.Now()

	mockDB.ExpectExec("SET sent_at = $2").WithArgs("f-1", sentAt).WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("SET attempts = attempts + 1, last_error = $2").WithArgs("f-2", "throttled").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("SET attempts = attempts + 1, last_error = $2").WithArgs("gone", "x").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectExec("SET sent_at = $2").WillReturnError(errors.New("connection reset"))

	ctx := context.Background()
	require.NoError(t, repo.MarkSent(ctx, "f-1", sentAt))
	require.NoError(t, repo.MarkFailed(ctx, "f-2", "throttled"))
	assert.True(t, apperrors.Is(repo.MarkFailed(ctx, "gone", "x"), apperrors.ErrNotFound))
	assert.ErrorContains(t, repo.MarkSent(ctx, "f-3", sentAt), "connection reset")
	mockDB.ExpectationsWereMet(t)
}

