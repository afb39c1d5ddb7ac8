package retryqueue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebase/features/retryqueue"
	"notebase/internal/testutils"
)

func TestRetryQueueRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.SkipWeaviate = true
	s.Setup()
	defer s.Teardown()

	repo := retryqueue.NewPostgresRepo(s.DB)
	ctx := context.Background()

	const entityID = "5a0a2cb5-8a01-4a7e-b6c5-94e8fd9c2f01"

	// 1. Enqueue after a write-path failure. The failed write itself counts
	// as the first attempt.
	item, err := repo.Enqueue(ctx, entityID, retryqueue.OpUpdate, "rate limited", 3, false)
	require.NoError(t, err)
	assert.Equal(t, retryqueue.StatusPending, item.Status)
	assert.Equal(t, 1, item.AttemptCount)
	assert.Equal(t, 3, item.MaxAttempts)
	assert.Nil(t, item.DeadLetterAt)

	// 2. A second failure for the same (entity, operation) updates the live
	// row instead of creating a duplicate.
	dup, err := repo.Enqueue(ctx, entityID, retryqueue.OpUpdate, "rate limited again", 3, false)
	require.NoError(t, err)
	assert.Equal(t, item.ID, dup.ID)
	assert.Equal(t, "rate limited again", dup.ErrorMessage)

	// 3. Claim and fail until the attempt budget runs out.
	ok, err := repo.TryClaim(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Double claim must lose.
	ok, err = repo.TryClaim(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := repo.Fail(ctx, item.ID, "still failing", false)
	require.NoError(t, err)
	assert.Equal(t, retryqueue.StatusPending, status)

	ok, err = repo.TryClaim(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err = repo.Fail(ctx, item.ID, "still failing", false)
	require.NoError(t, err)
	assert.Equal(t, retryqueue.StatusDeadLetter, status)

	dead, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, dead.AttemptCount)
	assert.NotNil(t, dead.DeadLetterAt)

	// 4. Dead-letter rows no longer block a fresh enqueue for the same pair.
	fresh, err := repo.Enqueue(ctx, entityID, retryqueue.OpUpdate, "new failure", 3, false)
	require.NoError(t, err)
	assert.NotEqual(t, item.ID, fresh.ID)
	require.NoError(t, repo.Resolve(ctx, fresh.ID))

	// 5. Operator reset grants a fresh budget.
	resetStatus, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, retryqueue.StatusDeadLetter, resetStatus.Status)

	require.NoError(t, repo.ResetToPending(ctx, item.ID))
	reset, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, retryqueue.StatusPending, reset.Status)
	assert.Equal(t, 0, reset.AttemptCount)
	assert.Nil(t, reset.DeadLetterAt)

	// Resetting a pending row is rejected.
	assert.ErrorIs(t, repo.ResetToPending(ctx, item.ID), retryqueue.ErrInvalidState)

	// 6. A permanent failure escalates the live item for the pair instead of
	// filing a second row next to it.
	escalated, err := repo.Enqueue(ctx, entityID, retryqueue.OpUpdate, "content rejected", 3, true)
	require.NoError(t, err)
	assert.Equal(t, item.ID, escalated.ID)
	assert.Equal(t, retryqueue.StatusDeadLetter, escalated.Status)
	assert.NotNil(t, escalated.DeadLetterAt)

	require.NoError(t, repo.Resolve(ctx, item.ID))
}

func TestRetryQueueRepo_Integration_Pagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.SkipWeaviate = true
	s.Setup()
	defer s.Teardown()

	repo := retryqueue.NewPostgresRepo(s.DB)
	ctx := context.Background()

	ids := []string{
		"11111111-1111-1111-1111-111111111111",
		"22222222-2222-2222-2222-222222222222",
		"33333333-3333-3333-3333-333333333333",
		"44444444-4444-4444-4444-444444444444",
		"55555555-5555-5555-5555-555555555555",
	}
	for _, id := range ids {
		_, err := repo.Enqueue(ctx, id, retryqueue.OpCreate, "invalid input", 3, true)
		require.NoError(t, err)
	}

	total, err := repo.CountDeadLetter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	page, pageTotal, err := repo.ListDeadLetter(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 5, pageTotal)

	// Entities table has no matching rows, so the joined title is empty.
	assert.Equal(t, "", page[0].EntityTitle)

	last, lastTotal, err := repo.ListDeadLetter(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, last, 1)
	assert.Equal(t, 5, lastTotal)
}
