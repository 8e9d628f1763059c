// internal/cache/redis_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givdo/givdo/internal/logging"
)

// testQueue needs a real local redis; the test is skipped without one.
func testQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}

	q := NewQueue(rdb, "givdo:test:"+uuid.NewString(), logging.Discard())
	t.Cleanup(func() {
		rdb.Del(context.Background(), q.name, q.dead)
		rdb.Close()
	})
	return q, rdb
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	orgID := uuid.New()
	job := NewUpdateOrganization(orgID)
	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, JobUpdateOrganization, got.Type)
	assert.Equal(t, orgID, got.OrganizationID)
	assert.Zero(t, got.Attempt)
}

func TestQueue_RetryThenDeadLetter(t *testing.T) {
	q, rdb := testQueue(t)
	ctx := context.Background()

	job := NewUpdateOrganization(uuid.New())
	for i := 1; i < MaxAttempts; i++ {
		require.NoError(t, q.Retry(ctx, &job))
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, i, got.Attempt)
	}

	require.NoError(t, q.Retry(ctx, &job))
	n, err := rdb.LLen(ctx, q.DeadLetterName()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = rdb.LLen(ctx, q.name).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_DequeueSkipsGarbage(t *testing.T) {
	q, rdb := testQueue(t)
	ctx := context.Background()
	require.NoError(t, rdb.RPush(ctx, q.name, "{not json").Err())

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
