package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultLog struct {
	mu      sync.Mutex
	results []error
	jobs    []Job
	done    chan struct{}
}

func newResultLog() *resultLog { return &resultLog{done: make(chan struct{}, 8)} }

func (r *resultLog) record(job Job, err error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.results = append(r.results, err)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *resultLog) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("notifications", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "noop"}))
}

func TestQueueRunsJobAndReportsSuccess(t *testing.T) {
	log := newResultLog()
	q := NewQueue("notifications", func(_ context.Context, job Job) error {
		if job.Payload != "hello" {
			return errors.New("unexpected payload")
		}
		return nil
	}, QueueConfig{OnResult: log.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "notify", Payload: "hello"}))
	log.wait(t)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.NoError(t, log.results[0])
	assert.NotEmpty(t, log.jobs[0].ID)
	assert.False(t, log.jobs[0].Enqueued.IsZero())
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	log := newResultLog()
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("notifications", func(context.Context, Job) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("smtp down")
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond, OnResult: log.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "notify"}))
	log.wait(t)

	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()
	log.mu.Lock()
	defer log.mu.Unlock()
	assert.EqualError(t, log.results[0], "smtp down")
	assert.Equal(t, "job-1", log.jobs[0].ID)
	assert.Equal(t, 3, log.jobs[0].Attempt)
}

func TestQueueRecoversAfterTransientFailure(t *testing.T) {
	log := newResultLog()
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("notifications", func(context.Context, Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	}, QueueConfig{RetryDelay: 5 * time.Millisecond, OnResult: log.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "notify"}))
	log.wait(t)

	log.mu.Lock()
	defer log.mu.Unlock()
	require.Len(t, log.results, 1)
	assert.NoError(t, log.results[0])
}
