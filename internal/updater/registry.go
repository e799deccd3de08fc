package updater

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crm-updater/internal/logging"
)

// Entry is one registered updater with its bookkeeping.
type Entry struct {
	Runner       *Runner   `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Registry is a name-addressed collection of updater runners with bulk
// execution and aggregated metrics.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	log     *logging.Logger
}

func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		log:     log,
	}
}

// Register stores the runner under name. An existing entry is
// overwritten with a warning; there is no versioning.
func (r *Registry) Register(name string, runner *Runner, category, description string) {
	r.mu.Lock()
	if _, exists := r.entries[name]; exists {
		r.log.Warn("replacing registered updater", map[string]string{"updater": name})
	}
	r.entries[name] = &Entry{
		Runner:       runner,
		RegisteredAt: time.Now(),
		Category:     category,
		Description:  description,
	}
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.Runner, true
}

func (r *Registry) Entry(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns registered names sorted for stable output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) SetEnabled(name string, enabled bool) error {
	runner, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("updater %q is not registered", name)
	}
	runner.SetEnabled(enabled)
	return nil
}

// ExecuteAll runs every registered updater sequentially. A failing or
// disabled updater contributes a failed result and never blocks the
// rest of the batch.
func (r *Registry) ExecuteAll(ctx context.Context) map[string]Result {
	return r.ExecuteSpecific(ctx, r.Names())
}

// ExecuteSpecific runs the named updaters sequentially. Unknown names
// yield a synthesized failed result.
func (r *Registry) ExecuteSpecific(ctx context.Context, names []string) map[string]Result {
	results := make(map[string]Result, len(names))
	for _, name := range names {
		runner, ok := r.Get(name)
		if !ok {
			results[name] = Result{Success: false, Errors: []string{"updater not found"}}
			continue
		}
		results[name] = runner.Execute(ctx)
	}
	return results
}

// Metrics returns each updater's metrics snapshot.
func (r *Registry) Metrics() map[string]Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Metrics, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.Runner.Metrics()
	}
	return out
}

// AggregatedMetrics is the sum over all registered updaters.
type AggregatedMetrics struct {
	Updaters             int `json:"updaters"`
	TotalExecutions      int `json:"total_executions"`
	SuccessfulExecutions int `json:"successful_executions"`
	FailedExecutions     int `json:"failed_executions"`
}

func (r *Registry) Aggregated() AggregatedMetrics {
	agg := AggregatedMetrics{}
	for _, m := range r.Metrics() {
		agg.Updaters++
		agg.TotalExecutions += m.TotalExecutions
		agg.SuccessfulExecutions += m.SuccessfulExecutions
		agg.FailedExecutions += m.FailedExecutions
	}
	return agg
}

// ValidateAll performs the shallow registration check: every updater
// must carry a name and a tenant. Deeper business-rule validation
// belongs to Config.Validate.
func (r *Registry) ValidateAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []string
	for name, e := range r.entries {
		if name == "" {
			errs = append(errs, "updater registered with empty name")
		}
		if e.Runner.TenantID() == "" {
			errs = append(errs, fmt.Sprintf("updater %q has no tenant ID", name))
		}
	}
	return errs
}
