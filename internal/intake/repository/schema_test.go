package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cvintake/cvintake-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("runs the schema in a transaction", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		mockDB.Mock.ExpectBegin()
		mockDB.ExpectExec("CREATE TABLE IF NOT EXISTS submissions").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.Mock.ExpectCommit()

		require.NoError(t, Migrate(context.Background(), mockDB.DB))
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		mockDB.Mock.ExpectBegin()
		mockDB.ExpectExec("CREATE TABLE IF NOT EXISTS submissions").
			WillReturnError(errors.New("permission denied for schema public"))
		mockDB.Mock.ExpectRollback()

		err := Migrate(context.Background(), mockDB.DB)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to migrate intake schema")
		mockDB.ExpectationsWereMet(t)
	})
}
