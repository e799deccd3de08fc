package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crm-updater/internal/logging"
)

// Record is one synthetic row ready for insertion. Concrete updaters
// produce and consume their own model type behind this.
type Record interface{}

// Updater is the capability contract every concrete updater fulfils.
// ValidateExecution checks prerequisites (parent rows in the store)
// before anything is generated; GenerateData produces the batch;
// InsertData persists it, or only counts it when dryRun is set.
type Updater interface {
	Name() string
	TenantID() string
	ValidateExecution(ctx context.Context) error
	GenerateData(ctx context.Context) ([]Record, error)
	InsertData(ctx context.Context, records []Record, dryRun bool) (int, error)
}

// Result is the outcome of a single execution. Failures are reported
// here as data, never as a returned error.
type Result struct {
	Success        bool          `json:"success"`
	RecordsUpdated int           `json:"records_updated"`
	ExecutionTime  time.Duration `json:"execution_time"`
	Errors         []string      `json:"errors,omitempty"`
	Data           []Record      `json:"data,omitempty"`
}

// Metrics accumulates per-updater execution counters until an explicit
// reset.
type Metrics struct {
	TotalExecutions      int           `json:"total_executions"`
	SuccessfulExecutions int           `json:"successful_executions"`
	FailedExecutions     int           `json:"failed_executions"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
	LastExecution        *time.Time    `json:"last_execution,omitempty"`
	LastError            string        `json:"last_error,omitempty"`
}

// Runner drives an Updater through the validate/generate/insert
// lifecycle and owns its metrics and enabled/dry-run flags.
type Runner struct {
	updater Updater
	log     *logging.Logger

	mu      sync.Mutex
	enabled bool
	dryRun  bool
	metrics Metrics
}

func NewRunner(u Updater, log *logging.Logger, dryRun bool) *Runner {
	return &Runner{
		updater: u,
		log:     log,
		enabled: true,
		dryRun:  dryRun,
	}
}

func (r *Runner) Name() string { return r.updater.Name() }

func (r *Runner) TenantID() string { return r.updater.TenantID() }

func (r *Runner) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Runner) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

func (r *Runner) DryRun() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dryRun
}

func (r *Runner) SetDryRun(dryRun bool) {
	r.mu.Lock()
	r.dryRun = dryRun
	r.mu.Unlock()
}

// Metrics returns a snapshot of the accumulated counters.
func (r *Runner) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

func (r *Runner) ResetMetrics() {
	r.mu.Lock()
	r.metrics = Metrics{}
	r.mu.Unlock()
}

// Execute runs one full lifecycle. It never returns an error and never
// panics: every failure is folded into the Result and the metrics.
// A disabled updater short-circuits without touching metrics.
func (r *Runner) Execute(ctx context.Context) Result {
	return r.execute(ctx, r.DryRun())
}

// ExecuteDryRun runs one lifecycle with writes suppressed regardless
// of the configured dry-run flag.
func (r *Runner) ExecuteDryRun(ctx context.Context) Result {
	return r.execute(ctx, true)
}

func (r *Runner) execute(ctx context.Context, dryRun bool) Result {
	if !r.Enabled() {
		return Result{Success: false, Errors: []string{"updater is disabled"}}
	}

	start := time.Now()
	res := r.run(ctx, dryRun)
	res.ExecutionTime = time.Since(start)
	r.record(res)

	if res.Success {
		r.log.Info("updater execution completed", map[string]interface{}{
			"updater": r.Name(),
			"records": res.RecordsUpdated,
			"dry_run": dryRun,
			"took_ms": res.ExecutionTime.Milliseconds(),
		})
	} else {
		r.log.Warn("updater execution failed", map[string]interface{}{
			"updater": r.Name(),
			"errors":  res.Errors,
		})
	}
	return res
}

func (r *Runner) run(ctx context.Context, dryRun bool) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Success: false, Errors: []string{fmt.Sprintf("panic: %v", p)}}
		}
	}()

	if err := r.updater.ValidateExecution(ctx); err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}
	}

	records, err := r.updater.GenerateData(ctx)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}
	}
	if len(records) == 0 {
		return Result{Success: true, RecordsUpdated: 0}
	}

	count, err := r.updater.InsertData(ctx, records, dryRun)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}
	}

	res = Result{Success: true, RecordsUpdated: count}
	if dryRun {
		res.Data = records
	}
	return res
}

// record folds one result into the metrics. The average execution time
// is a running mean recomputed on every execution, success or not.
func (r *Runner) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &r.metrics
	m.TotalExecutions++
	if res.Success {
		m.SuccessfulExecutions++
	} else {
		m.FailedExecutions++
		if len(res.Errors) > 0 {
			m.LastError = res.Errors[0]
		}
	}

	n := time.Duration(m.TotalExecutions)
	m.AverageExecutionTime = (m.AverageExecutionTime*(n-1) + res.ExecutionTime) / n

	now := time.Now()
	m.LastExecution = &now
}
