package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-updater/internal/logging"
)

// quietLogger has no sinks, so nothing the scheduler logs reaches the
// test output.
func quietLogger() *logging.Logger {
	return logging.New(logging.Options{Level: logging.LevelError})
}

func noop(ctx context.Context) error { return nil }

// farFuture never fires during a test run.
const farFuture = "0 0 1 1 *"

func TestScheduleValidation(t *testing.T) {
	s := New(quietLogger(), 5)

	t.Run("Rejects an empty name", func(t *testing.T) {
		err := s.Schedule("", "* * * * *", noop)
		require.Error(t, err)
	})

	t.Run("Rejects an invalid expression", func(t *testing.T) {
		err := s.Schedule("bad", "not a cron", noop)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
		assert.NotContains(t, s.JobNames(), "bad")
	})

	t.Run("Accepts five and six field expressions", func(t *testing.T) {
		require.NoError(t, s.Schedule("five", "*/30 * * * *", noop))
		require.NoError(t, s.Schedule("six", "0 */30 * * * *", noop))
	})
}

func TestScheduleReplacesSameName(t *testing.T) {
	s := New(quietLogger(), 5)

	var oldFired, newFired atomic.Int32
	require.NoError(t, s.Schedule("job", farFuture, func(ctx context.Context) error {
		oldFired.Add(1)
		return nil
	}))
	require.NoError(t, s.Schedule("job", "*/5 * * * *", func(ctx context.Context) error {
		newFired.Add(1)
		return nil
	}))

	assert.Equal(t, []string{"job"}, s.JobNames())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "*/5 * * * *", jobs[0].Cron)

	require.NoError(t, s.Start())
	defer s.Stop()
	require.NoError(t, s.ExecuteJob("job"))

	assert.Equal(t, int32(0), oldFired.Load())
	assert.Equal(t, int32(1), newFired.Load())
}

func TestExecuteJob(t *testing.T) {
	s := New(quietLogger(), 5)
	require.NoError(t, s.Schedule("ok", farFuture, noop))
	require.NoError(t, s.Schedule("failing", farFuture, func(ctx context.Context) error {
		return fmt.Errorf("boom")
	}))

	t.Run("Errors before the scheduler starts", func(t *testing.T) {
		require.Error(t, s.ExecuteJob("ok"))
	})

	require.NoError(t, s.Start())
	defer s.Stop()

	t.Run("Errors on an unknown job", func(t *testing.T) {
		err := s.ExecuteJob("missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not scheduled")
	})

	t.Run("Counts successes and failures separately", func(t *testing.T) {
		require.NoError(t, s.ExecuteJob("ok"))
		require.NoError(t, s.ExecuteJob("ok"))
		require.NoError(t, s.ExecuteJob("failing"))

		byName := map[string]JobStatus{}
		for _, j := range s.Jobs() {
			byName[j.Name] = j
		}
		assert.Equal(t, 2, byName["ok"].ExecutionCount)
		assert.Equal(t, 0, byName["ok"].ErrorCount)
		assert.Equal(t, 0, byName["failing"].ExecutionCount)
		assert.Equal(t, 1, byName["failing"].ErrorCount)
		assert.NotNil(t, byName["ok"].LastExecution)
	})
}

func TestConcurrencyCeiling(t *testing.T) {
	s := New(quietLogger(), 2)

	release := make(chan struct{})
	var started sync.WaitGroup
	var invoked atomic.Int32
	blocking := func(ctx context.Context) error {
		invoked.Add(1)
		started.Done()
		<-release
		return nil
	}

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Schedule(fmt.Sprintf("job-%d", i), farFuture, blocking))
	}
	require.NoError(t, s.Start())

	started.Add(2)
	go s.ExecuteJob("job-1")
	go s.ExecuteJob("job-2")
	started.Wait()

	// Both slots are occupied; the third firing must be skipped, not
	// queued.
	require.NoError(t, s.ExecuteJob("job-3"))
	assert.Equal(t, int32(2), invoked.Load())

	close(release)
	s.Stop()

	byName := map[string]JobStatus{}
	for _, j := range s.Jobs() {
		byName[j.Name] = j
	}
	assert.Equal(t, 1, byName["job-1"].ExecutionCount)
	assert.Equal(t, 1, byName["job-2"].ExecutionCount)
	assert.Equal(t, 0, byName["job-3"].ExecutionCount)
	assert.Equal(t, 0, byName["job-3"].ErrorCount)
}

func TestStopDrainsInFlightJobs(t *testing.T) {
	t.Run("Waits for a running job to finish", func(t *testing.T) {
		s := New(quietLogger(), 5)
		s.drainPoll = 10 * time.Millisecond

		release := make(chan struct{})
		running := make(chan struct{})
		require.NoError(t, s.Schedule("slow", farFuture, func(ctx context.Context) error {
			close(running)
			<-release
			return nil
		}))
		require.NoError(t, s.Start())

		go s.ExecuteJob("slow")
		<-running

		stopped := make(chan struct{})
		go func() {
			s.Stop()
			close(stopped)
		}()

		select {
		case <-stopped:
			t.Fatal("Stop returned while a job was still running")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("Stop did not return after the job finished")
		}
		assert.False(t, s.Running())
	})

	t.Run("Gives up at the drain deadline", func(t *testing.T) {
		s := New(quietLogger(), 5)
		s.drainPoll = 10 * time.Millisecond
		s.drainTimeout = 100 * time.Millisecond

		release := make(chan struct{})
		defer close(release)
		running := make(chan struct{})
		require.NoError(t, s.Schedule("stuck", farFuture, func(ctx context.Context) error {
			close(running)
			<-release
			return nil
		}))
		require.NoError(t, s.Start())

		go s.ExecuteJob("stuck")
		<-running

		done := make(chan struct{})
		go func() {
			s.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not honor the drain deadline")
		}
	})

	t.Run("Rejects firings while draining", func(t *testing.T) {
		s := New(quietLogger(), 5)
		require.NoError(t, s.Schedule("late", farFuture, noop))
		require.NoError(t, s.Start())
		s.Stop()

		require.Error(t, s.ExecuteJob("late"))
	})
}

func TestUnschedule(t *testing.T) {
	s := New(quietLogger(), 5)
	require.NoError(t, s.Schedule("gone", farFuture, noop))
	require.NoError(t, s.Unschedule("gone"))
	assert.Empty(t, s.JobNames())

	err := s.Unschedule("gone")
	require.Error(t, err)
}

func TestNextExecutions(t *testing.T) {
	s := New(quietLogger(), 5)
	require.NoError(t, s.Schedule("every-minute", "* * * * *", noop))
	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextExecutions()
	require.Contains(t, next, "every-minute")
	assert.True(t, next["every-minute"].After(time.Now()))
	assert.True(t, next["every-minute"].Before(time.Now().Add(2*time.Minute)))
}

func TestSetMaxConcurrent(t *testing.T) {
	s := New(quietLogger(), 0)
	assert.Equal(t, 5, s.maxConcurrent)
	s.SetMaxConcurrent(3)
	assert.Equal(t, 3, s.maxConcurrent)
	s.SetMaxConcurrent(-1)
	assert.Equal(t, 3, s.maxConcurrent)
}
