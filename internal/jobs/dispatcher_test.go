package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/core"
)

type fakeJob struct {
	mu      sync.Mutex
	events  []*core.CanonicalEvent
	block   chan struct{}
	started chan struct{}
	err     error
}

func (j *fakeJob) Run(_ context.Context, event *core.CanonicalEvent) error {
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
	return j.err
}

func (j *fakeJob) seen() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(repo string) *core.CanonicalEvent {
	return &core.CanonicalEvent{
		Platform:    core.PlatformGitHub,
		Repository:  core.EventRepo{FullName: repo},
		PullRequest: &core.EventPullRequest{Number: 1},
	}
}

func TestDispatcherProcessesQueuedEvents(t *testing.T) {
	job := &fakeJob{}
	d := NewDispatcher(job, 2, 8, testLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Dispatch(context.Background(), testEvent("acme/relay")))
	}
	d.Stop()

	assert.Equal(t, 5, job.seen())
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	job := &fakeJob{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	d := NewDispatcher(job, 1, 1, testLogger())

	// First event occupies the single worker, second fills the queue.
	require.NoError(t, d.Dispatch(context.Background(), testEvent("acme/one")))
	select {
	case <-job.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first event")
	}
	require.NoError(t, d.Dispatch(context.Background(), testEvent("acme/two")))

	err := d.Dispatch(context.Background(), testEvent("acme/three"))
	assert.ErrorIs(t, err, core.ErrQueueFull)

	close(job.block)
	go func() {
		for range job.started {
		}
	}()
	d.Stop()
	close(job.started)

	assert.Equal(t, 2, job.seen())
}

func TestDispatcherContinuesAfterJobError(t *testing.T) {
	job := &fakeJob{err: errors.New("pipeline failed")}
	d := NewDispatcher(job, 1, 4, testLogger())

	require.NoError(t, d.Dispatch(context.Background(), testEvent("acme/relay")))
	require.NoError(t, d.Dispatch(context.Background(), testEvent("acme/relay")))
	d.Stop()

	assert.Equal(t, 2, job.seen())
}

func TestNewDispatcherDefaults(t *testing.T) {
	job := &fakeJob{}
	d := NewDispatcher(job, 0, 0, testLogger())

	assert.Equal(t, 1, d.maxWorkers)
	assert.Equal(t, 64, cap(d.jobQueue))
	d.Stop()
}
