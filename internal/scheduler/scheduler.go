package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"crm-updater/internal/logging"
)

// Handler is the work a scheduled job performs. A returned error is
// counted and logged by the scheduler, never propagated.
type Handler func(ctx context.Context) error

// cronParser accepts standard 5-field expressions plus an optional
// leading seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type job struct {
	name           string
	expr           string
	entryID        cron.EntryID
	handler        Handler
	executionCount int
	errorCount     int
	lastExecution  *time.Time
}

// JobStatus is the externally visible snapshot of one job.
type JobStatus struct {
	Name           string     `json:"name"`
	Cron           string     `json:"cron"`
	ExecutionCount int        `json:"execution_count"`
	ErrorCount     int        `json:"error_count"`
	LastExecution  *time.Time `json:"last_execution,omitempty"`
	Running        bool       `json:"running"`
	NextExecution  *time.Time `json:"next_execution,omitempty"`
}

// CronScheduler maps cron expressions to recurring handler
// invocations with a hard concurrency ceiling: a firing that would
// exceed the ceiling is skipped, not queued.
type CronScheduler struct {
	mu            sync.Mutex
	cron          *cron.Cron
	log           *logging.Logger
	maxConcurrent int
	jobs          map[string]*job
	runningJobs   map[string]struct{}
	running       bool

	// drain parameters, overridable in tests
	drainPoll    time.Duration
	drainTimeout time.Duration
}

func New(log *logging.Logger, maxConcurrent int) *CronScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &CronScheduler{
		cron:          cron.New(cron.WithParser(cronParser)),
		log:           log,
		maxConcurrent: maxConcurrent,
		jobs:          make(map[string]*job),
		runningJobs:   make(map[string]struct{}),
		drainPoll:     time.Second,
		drainTimeout:  30 * time.Second,
	}
}

// Schedule validates the expression and registers the job. An existing
// job of the same name is replaced, its old timer destroyed. If the
// scheduler is running the new job is live immediately.
func (s *CronScheduler) Schedule(name, expr string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("job name must not be empty")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.jobs[name]; exists {
		s.cron.Remove(old.entryID)
		s.log.Warn("replacing scheduled job", map[string]string{"job": name, "cron": expr})
	}

	j := &job{name: name, expr: expr, handler: handler}
	entryID, err := s.cron.AddFunc(expr, func() {
		s.fire(name)
	})
	if err != nil {
		return fmt.Errorf("scheduling job %q: %w", name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j
	return nil
}

// Unschedule removes a job and destroys its timer.
func (s *CronScheduler) Unschedule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %q is not scheduled", name)
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, name)
	return nil
}

func (s *CronScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", map[string]int{"jobs": len(s.jobs)})
	return nil
}

// Stop flips to non-accepting, then waits up to the drain timeout for
// in-flight executions before stopping the timers. Jobs still running
// at the deadline are logged and abandoned; the stop proceeds anyway.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	deadline := time.Now().Add(s.drainTimeout)
	for {
		s.mu.Lock()
		inflight := len(s.runningJobs)
		s.mu.Unlock()
		if inflight == 0 {
			break
		}
		if time.Now().After(deadline) {
			s.log.Warn("stopping with jobs still running", map[string]int{"in_flight": inflight})
			break
		}
		time.Sleep(s.drainPoll)
	}

	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

func (s *CronScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ExecuteJob fires a job immediately, bypassing its schedule. Unknown
// names error; admission control still applies.
func (s *CronScheduler) ExecuteJob(name string) error {
	s.mu.Lock()
	_, exists := s.jobs[name]
	running := s.running
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %q is not scheduled", name)
	}
	if !running {
		return fmt.Errorf("scheduler is not running")
	}
	s.fire(name)
	return nil
}

// fire runs one invocation of the named job, subject to the
// concurrency ceiling. Handler errors are counted, never propagated.
func (s *CronScheduler) fire(name string) {
	s.mu.Lock()
	j, exists := s.jobs[name]
	if !exists || !s.running {
		s.mu.Unlock()
		return
	}
	if len(s.runningJobs) >= s.maxConcurrent {
		s.mu.Unlock()
		s.log.Warn("concurrency ceiling reached, skipping firing", map[string]interface{}{
			"job": name,
			"max": s.maxConcurrent,
		})
		return
	}
	s.runningJobs[name] = struct{}{}
	handler := j.handler
	s.mu.Unlock()

	err := func() error {
		defer func() {
			s.mu.Lock()
			delete(s.runningJobs, name)
			s.mu.Unlock()
		}()
		return handler(context.Background())
	}()

	s.mu.Lock()
	now := time.Now()
	j.lastExecution = &now
	if err != nil {
		j.errorCount++
	} else {
		j.executionCount++
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("scheduled job failed", map[string]string{"job": name, "error": err.Error()})
	}
}

// JobNames returns the scheduled job names, sorted.
func (s *CronScheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Jobs returns a status snapshot of every scheduled job, including the
// real next-fire time computed by the cron library.
func (s *CronScheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		st := JobStatus{
			Name:           name,
			Cron:           j.expr,
			ExecutionCount: j.executionCount,
			ErrorCount:     j.errorCount,
			LastExecution:  j.lastExecution,
		}
		if _, running := s.runningJobs[name]; running {
			st.Running = true
		}
		if next := s.cron.Entry(j.entryID).Next; !next.IsZero() {
			st.NextExecution = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// NextExecutions maps job names to their next scheduled fire time.
func (s *CronScheduler) NextExecutions() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.jobs))
	for name, j := range s.jobs {
		if next := s.cron.Entry(j.entryID).Next; !next.IsZero() {
			out[name] = next
		}
	}
	return out
}

// SetMaxConcurrent adjusts the admission ceiling.
func (s *CronScheduler) SetMaxConcurrent(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxConcurrent = n
	s.mu.Unlock()
}
