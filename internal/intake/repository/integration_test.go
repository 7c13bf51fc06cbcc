package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/internal/intake/repository"
	apperrors "github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *testutil.IntegrationSuite {
	t.Helper()
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	require.NoError(t, repository.Migrate(ctx, suite.DB))
	// second run must be a no-op
	require.NoError(t, repository.Migrate(ctx, suite.DB))

	_, err := suite.DB.ExecContext(ctx, `TRUNCATE follow_ups, submissions`)
	require.NoError(t, err)
	return suite
}

func TestSubmissionRepository_Integration(t *testing.T) {
	suite := setup(t)
	ctx := context.Background()
	repo := repository.NewSubmissionRepository(suite.DB)

	s := &domain.Submission{
		ApplicantName:  "Jane Doe",
		ApplicantEmail: "jane@example.com",
		Filename:       "cv.docx",
		Format:         domain.FormatDOCX,
		SizeBytes:      4096,
		Status:         domain.StatusReceived,
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, got.Status)
	assert.Empty(t, got.Warnings)
	assert.Nil(t, got.CVData)

	s.AddWarning(domain.WarningWebhookFailed)
	s.Settle()
	s.PublicURL = "https://cvs.s3.amazonaws.com/" + s.ID + "/cv.docx"
	s.CVData = &domain.CVData{
		PersonalInfo: domain.PersonalInfo{Name: testutil.PtrString("Jane Doe")},
		Education:    []string{"BSc Computer Science"},
		PublicLink:   s.PublicURL,
	}
	require.NoError(t, repo.UpdateOutcome(ctx, s))

	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, got.Status)
	assert.Equal(t, []string{"webhook_failed"}, []string(got.Warnings))
	require.NotNil(t, got.CVData)
	assert.Equal(t, []string{"BSc Computer Science"}, got.CVData.Education)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	bad := &domain.Submission{ApplicantName: "x", ApplicantEmail: "x@example.com", Filename: "x.txt", Format: "txt", Status: domain.StatusReceived}
	assert.True(t, apperrors.Is(repo.Create(ctx, bad), apperrors.ErrValidation))
}

func TestFollowUpRepository_Integration(t *testing.T) {
	suite := setup(t)
	ctx := context.Background()
	repo := repository.NewFollowUpRepository(suite.DB)
	now := time.Now().UTC().Truncate(time.Second)

	past := &domain.FollowUp{Email: "past@example.com", DueAt: now.Add(-time.Hour)}
	future := &domain.FollowUp{Email: "future@example.com", DueAt: now.Add(time.Hour)}

	for _, f := range []*domain.FollowUp{past, future} {
		created, err := repo.Create(ctx, f)
		require.NoError(t, err)
		assert.True(t, created)
	}

	created, err := repo.Create(ctx, &domain.FollowUp{Email: "past@example.com", DueAt: now})
	require.NoError(t, err)
	assert.False(t, created, "one follow-up per email")

	due, err := repo.ListDue(ctx, now, 10, 2)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	require.NoError(t, repo.MarkFailed(ctx, past.ID, "throttled"))
	require.NoError(t, repo.MarkFailed(ctx, past.ID, "throttled"))

	due, err = repo.ListDue(ctx, now, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, due, "abandoned after max attempts")

	due, err = repo.ListDue(ctx, now.Add(2*time.Hour), 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 2)

	require.NoError(t, repo.MarkSent(ctx, future.ID, now))
	due, err = repo.ListDue(ctx, now.Add(2*time.Hour), 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)
}
