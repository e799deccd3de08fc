package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"crm-updater/internal/logging"
	"crm-updater/internal/scheduler"
	"crm-updater/internal/updater"
)

// Options configures a Manager at construction. Overrides is the only
// way to change the target tenant and customer identifiers.
type Options struct {
	Overrides *updater.Overrides
	DryRun    bool
	Logger    *logging.Logger
}

// Manager is the single entry point of the updater subsystem. It wires
// configuration, registry, and scheduler together and exposes the
// start/stop/execute/status surface the control plane consumes.
type Manager struct {
	mu        sync.Mutex
	db        *gorm.DB
	log       *logging.Logger
	cfg       *updater.Config
	registry  *updater.Registry
	scheduler *scheduler.CronScheduler
	running   bool
}

func New(db *gorm.DB, opts Options) (*Manager, error) {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.Options{Level: logging.LevelInfo, Console: true})
	}

	cfg := updater.DefaultConfig()
	if opts.Overrides != nil {
		cfg.Apply(*opts.Overrides)
	}
	if opts.DryRun {
		cfg.Execution.DryRun = true
	}

	registry := updater.NewRegistry(log)
	dryRun := cfg.Execution.DryRun

	activity := updater.NewActivityUpdater(db, cfg, log)
	registry.Register(activity.Name(), updater.NewRunner(activity, log, dryRun),
		"crm", "logs synthetic touchpoint activity against existing business records")

	ticket, err := updater.NewTicketUpdater(db, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("building service ticket updater: %w", err)
	}
	registry.Register(ticket.Name(), updater.NewRunner(ticket, log, dryRun),
		"service", "opens synthetic service tickets with sequential ST numbering")

	record := updater.NewRecordUpdater(db, cfg, log)
	registry.Register(record.Name(), updater.NewRunner(record, log, dryRun),
		"crm", "creates one synthetic lead per run")

	m := &Manager{
		db:        db,
		log:       log,
		cfg:       cfg,
		registry:  registry,
		scheduler: scheduler.New(log, cfg.Execution.MaxConcurrentJobs),
	}
	m.applyEnabledFlags()
	return m, nil
}

// Start validates the configuration and brings the scheduler up. A
// validation failure aggregates every violation into one error and
// leaves the scheduler untouched.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("updater manager already running")
	}

	if errs := m.validateConfiguration(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	for _, kind := range updater.Kinds() {
		entry := m.cfg.ForKind(kind)
		if !entry.Enabled {
			continue
		}
		name := string(kind)
		if err := m.scheduler.Schedule(name, entry.Cron, m.jobHandler(name)); err != nil {
			return fmt.Errorf("scheduling %s: %w", name, err)
		}
	}

	if err := m.scheduler.Start(); err != nil {
		return err
	}
	m.running = true
	m.log.Info("updater manager started", map[string]interface{}{
		"tenant":   m.cfg.TenantID,
		"updaters": m.registry.Count(),
		"dry_run":  m.cfg.Execution.DryRun,
	})
	return nil
}

// Stop drains the scheduler. Safe to call when not running.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.scheduler.Stop()
	m.running = false
	m.log.Info("updater manager stopped")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ExecuteUpdater runs one updater immediately, bypassing its schedule.
// Unknown names error; execution failures are reported in the Result.
func (m *Manager) ExecuteUpdater(ctx context.Context, name string) (updater.Result, error) {
	runner, ok := m.registry.Get(name)
	if !ok {
		return updater.Result{}, fmt.Errorf("unknown updater %q", name)
	}
	return runner.Execute(ctx), nil
}

// ExecuteUpdaterDryRun runs one updater with writes suppressed.
func (m *Manager) ExecuteUpdaterDryRun(ctx context.Context, name string) (updater.Result, error) {
	runner, ok := m.registry.Get(name)
	if !ok {
		return updater.Result{}, fmt.Errorf("unknown updater %q", name)
	}
	return runner.ExecuteDryRun(ctx), nil
}

// UpdateConfiguration applies a partial config update. A running
// manager is stopped first and restarted afterwards so no schedule
// goes stale.
func (m *Manager) UpdateConfiguration(o updater.Overrides) error {
	wasRunning := m.IsRunning()
	if wasRunning {
		m.Stop()
	}

	m.mu.Lock()
	m.cfg.Apply(o)
	m.scheduler.SetMaxConcurrent(m.cfg.Execution.MaxConcurrentJobs)
	for _, name := range m.registry.Names() {
		if runner, ok := m.registry.Get(name); ok {
			runner.SetDryRun(m.cfg.Execution.DryRun)
		}
	}
	m.mu.Unlock()
	m.applyEnabledFlags()

	m.log.Info("configuration updated")

	if wasRunning {
		return m.Start()
	}
	return nil
}

// SetUpdaterEnabled toggles a single updater. The schedule entry flag
// is kept in sync so a restart preserves the choice.
func (m *Manager) SetUpdaterEnabled(name string, enabled bool) error {
	kind, ok := updater.KindFromName(name)
	if !ok {
		return fmt.Errorf("unknown updater %q", name)
	}
	if err := m.registry.SetEnabled(name, enabled); err != nil {
		return err
	}
	m.mu.Lock()
	switch kind {
	case updater.KindActivity:
		m.cfg.Schedules.BusinessActivities.Enabled = enabled
	case updater.KindServiceTicket:
		m.cfg.Schedules.ServiceTickets.Enabled = enabled
	case updater.KindBusinessRecord:
		m.cfg.Schedules.BusinessRecords.Enabled = enabled
	}
	m.mu.Unlock()
	return nil
}

// UpdaterStatus is the per-updater slice of the status read model.
type UpdaterStatus struct {
	Name         string          `json:"name"`
	Enabled      bool            `json:"enabled"`
	Category     string          `json:"category,omitempty"`
	Description  string          `json:"description,omitempty"`
	RegisteredAt time.Time       `json:"registered_at"`
	Metrics      updater.Metrics `json:"metrics"`
}

// Status is the single read model the control plane surfaces.
type Status struct {
	IsRunning      bool                     `json:"is_running"`
	Updaters       []UpdaterStatus          `json:"updaters"`
	Jobs           []scheduler.JobStatus    `json:"jobs"`
	NextExecutions map[string]time.Time     `json:"next_executions"`
	Config         *updater.Config          `json:"config"`
	Validation     updater.ValidationResult `json:"validation"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	running := m.running
	cfg := *m.cfg
	m.mu.Unlock()

	st := Status{
		IsRunning:      running,
		Jobs:           m.scheduler.Jobs(),
		NextExecutions: m.scheduler.NextExecutions(),
		Config:         &cfg,
		Validation:     cfg.Validate(),
	}
	for _, name := range m.registry.Names() {
		entry, ok := m.registry.Entry(name)
		if !ok {
			continue
		}
		st.Updaters = append(st.Updaters, UpdaterStatus{
			Name:         name,
			Enabled:      entry.Runner.Enabled(),
			Category:     entry.Category,
			Description:  entry.Description,
			RegisteredAt: entry.RegisteredAt,
			Metrics:      entry.Runner.Metrics(),
		})
	}
	return st
}

// Metrics returns per-updater metrics plus the aggregate.
func (m *Manager) Metrics() (map[string]updater.Metrics, updater.AggregatedMetrics) {
	return m.registry.Metrics(), m.registry.Aggregated()
}

// RecentLogs surfaces the logger's parsed tail for the control plane.
func (m *Manager) RecentLogs(count int) []logging.Entry {
	return m.log.RecentLogs(count)
}

// Registry exposes the underlying registry (CLI test command).
func (m *Manager) Registry() *updater.Registry {
	return m.registry
}

// Config returns a copy of the resolved configuration.
func (m *Manager) Config() updater.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cfg
}

// jobHandler adapts a registry execution into a scheduler handler,
// reporting failure as an error so the scheduler counts it.
func (m *Manager) jobHandler(name string) scheduler.Handler {
	return func(ctx context.Context) error {
		runner, ok := m.registry.Get(name)
		if !ok {
			return fmt.Errorf("updater %q missing from registry", name)
		}
		res := runner.Execute(ctx)
		if !res.Success {
			return fmt.Errorf("updater %s failed: %s", name, strings.Join(res.Errors, "; "))
		}
		return nil
	}
}

// validateConfiguration aggregates every violation: the deep config
// rules plus the cron shape of each enabled schedule. Callers hold mu.
func (m *Manager) validateConfiguration() []string {
	errs := m.cfg.Validate().Errors

	for _, kind := range updater.Kinds() {
		entry := m.cfg.ForKind(kind)
		if !entry.Enabled {
			continue
		}
		fields := len(strings.Fields(entry.Cron))
		if fields < 5 || fields > 6 {
			errs = append(errs, fmt.Sprintf("%s cron %q must have 5-6 fields", kind, entry.Cron))
		}
	}

	errs = append(errs, m.registry.ValidateAll()...)
	return errs
}

// applyEnabledFlags syncs runner enabled flags from the schedule
// entries.
func (m *Manager) applyEnabledFlags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kind := range updater.Kinds() {
		entry := m.cfg.ForKind(kind)
		if runner, ok := m.registry.Get(string(kind)); ok {
			runner.SetEnabled(entry.Enabled)
		}
	}
}
