package updater

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies one of the known updater types. The set is closed:
// anything arriving as a string goes through KindFromName first.
type Kind string

const (
	KindActivity       Kind = "business-record-activity"
	KindServiceTicket  Kind = "service-ticket"
	KindBusinessRecord Kind = "business-record"
)

// Kinds returns all known updater kinds in registration order.
func Kinds() []Kind {
	return []Kind{KindActivity, KindServiceTicket, KindBusinessRecord}
}

// KindFromName resolves an updater name from the API surface.
func KindFromName(name string) (Kind, bool) {
	switch Kind(name) {
	case KindActivity, KindServiceTicket, KindBusinessRecord:
		return Kind(name), true
	}
	return "", false
}

// Config is the single source of truth for the updater subsystem:
// target tenant/customer, schedules, data-generation distributions,
// execution limits, and business-hours rules.
type Config struct {
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id"`

	Schedules      ScheduleConfig       `json:"schedules"`
	DataGeneration DataGenerationConfig `json:"data_generation"`
	Execution      ExecutionConfig      `json:"execution"`
	Timezone       TimezoneConfig       `json:"timezone"`
}

type ScheduleConfig struct {
	BusinessActivities ScheduleEntry `json:"business_activities"`
	ServiceTickets     ScheduleEntry `json:"service_tickets"`
	BusinessRecords    ScheduleEntry `json:"business_records"`
}

type ScheduleEntry struct {
	Enabled bool   `json:"enabled"`
	Cron    string `json:"cron"`
}

type DataGenerationConfig struct {
	BusinessActivities ActivityGenConfig `json:"business_activities"`
	ServiceTickets     TicketGenConfig   `json:"service_tickets"`
	BusinessRecords    RecordGenConfig   `json:"business_records"`
}

type ActivityGenConfig struct {
	// Types maps activity type to probability; must sum to ~1.0.
	Types              map[string]float64 `json:"types"`
	Outcomes           map[string]float64 `json:"outcomes"`
	MinPerRun          int                `json:"min_per_run"`
	MaxPerRun          int                `json:"max_per_run"`
	MinDurationMinutes int                `json:"min_duration_minutes"`
	MaxDurationMinutes int                `json:"max_duration_minutes"`
}

type TicketGenConfig struct {
	Priorities     map[string]float64 `json:"priorities"`
	Statuses       map[string]float64 `json:"statuses"`
	MinPerRun      int                `json:"min_per_run"`
	MaxPerRun      int                `json:"max_per_run"`
	StartingNumber int                `json:"starting_number"`
}

type RecordGenConfig struct {
	LeadSources map[string]float64 `json:"lead_sources"`
	Industries  map[string]float64 `json:"industries"`
	MinScore    int                `json:"min_score"`
	MaxScore    int                `json:"max_score"`
	MinRevenue  float64            `json:"min_revenue"`
	MaxRevenue  float64            `json:"max_revenue"`
}

type ExecutionConfig struct {
	MaxConcurrentJobs int  `json:"max_concurrent_jobs"`
	DryRun            bool `json:"dry_run"`
	LookbackDays      int  `json:"lookback_days"`
}

type TimezoneConfig struct {
	Location     string         `json:"location"`
	BusinessDays []time.Weekday `json:"business_days"`
	StartHour    int            `json:"start_hour"`
	EndHour      int            `json:"end_hour"`
}

// DefaultConfig returns the stock configuration. The tenant and
// customer identifiers are fixed defaults, overridable only through
// the manager's constructor options.
func DefaultConfig() *Config {
	return &Config{
		TenantID:   "7a54c3f1-9e26-4d0b-b8a4-5f1c2d9e8b37",
		CustomerID: "CUST-DEMO-001",
		Schedules: ScheduleConfig{
			BusinessActivities: ScheduleEntry{Enabled: true, Cron: "*/30 * * * *"},
			ServiceTickets:     ScheduleEntry{Enabled: true, Cron: "0 */2 * * *"},
			BusinessRecords:    ScheduleEntry{Enabled: true, Cron: "0 9-17/4 * * 1-5"},
		},
		DataGeneration: DataGenerationConfig{
			BusinessActivities: ActivityGenConfig{
				Types: map[string]float64{
					"call":    0.35,
					"email":   0.30,
					"meeting": 0.15,
					"note":    0.10,
					"demo":    0.10,
				},
				Outcomes: map[string]float64{
					"completed": 0.60,
					"no_answer": 0.20,
					"voicemail": 0.15,
					"cancelled": 0.05,
				},
				MinPerRun:          1,
				MaxPerRun:          3,
				MinDurationMinutes: 5,
				MaxDurationMinutes: 60,
			},
			ServiceTickets: TicketGenConfig{
				Priorities: map[string]float64{
					"low":    0.30,
					"medium": 0.45,
					"high":   0.20,
					"urgent": 0.05,
				},
				Statuses: map[string]float64{
					"open":        0.50,
					"in_progress": 0.30,
					"pending":     0.15,
					"resolved":    0.05,
				},
				MinPerRun:      1,
				MaxPerRun:      2,
				StartingNumber: 1000,
			},
			BusinessRecords: RecordGenConfig{
				LeadSources: map[string]float64{
					"website":    0.30,
					"referral":   0.25,
					"cold_call":  0.20,
					"trade_show": 0.15,
					"partner":    0.10,
				},
				Industries: map[string]float64{
					"legal":         0.20,
					"healthcare":    0.20,
					"education":     0.15,
					"finance":       0.15,
					"real_estate":   0.15,
					"manufacturing": 0.15,
				},
				MinScore:   10,
				MaxScore:   95,
				MinRevenue: 250000,
				MaxRevenue: 25000000,
			},
		},
		Execution: ExecutionConfig{
			MaxConcurrentJobs: 5,
			DryRun:            false,
			LookbackDays:      7,
		},
		Timezone: TimezoneConfig{
			Location:     "America/Chicago",
			BusinessDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			StartHour:    8,
			EndHour:      18,
		},
	}
}

// ForKind returns the schedule entry for a known updater kind.
func (c *Config) ForKind(k Kind) ScheduleEntry {
	switch k {
	case KindActivity:
		return c.Schedules.BusinessActivities
	case KindServiceTicket:
		return c.Schedules.ServiceTickets
	case KindBusinessRecord:
		return c.Schedules.BusinessRecords
	}
	return ScheduleEntry{}
}

// ValidationResult collects all rule violations found by Validate.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Validate checks the configuration against its business rules. It
// reports violations as data; the caller decides whether to act.
func (c *Config) Validate() ValidationResult {
	var errs []string

	if _, err := uuid.Parse(c.TenantID); err != nil {
		errs = append(errs, fmt.Sprintf("tenant ID %q is not a valid UUID", c.TenantID))
	}
	if c.CustomerID == "" {
		errs = append(errs, "customer ID must not be empty")
	}

	checkDist := func(name string, dist map[string]float64) {
		if len(dist) == 0 {
			errs = append(errs, fmt.Sprintf("%s distribution is empty", name))
			return
		}
		var sum float64
		for _, p := range dist {
			sum += p
		}
		if sum < 0.99 || sum > 1.01 {
			errs = append(errs, fmt.Sprintf("%s distribution sums to %.3f, expected 1.0", name, sum))
		}
	}
	checkDist("activity types", c.DataGeneration.BusinessActivities.Types)
	checkDist("activity outcomes", c.DataGeneration.BusinessActivities.Outcomes)
	checkDist("ticket priorities", c.DataGeneration.ServiceTickets.Priorities)
	checkDist("ticket statuses", c.DataGeneration.ServiceTickets.Statuses)
	checkDist("lead sources", c.DataGeneration.BusinessRecords.LeadSources)
	checkDist("industries", c.DataGeneration.BusinessRecords.Industries)

	rec := c.DataGeneration.BusinessRecords
	if rec.MinScore >= rec.MaxScore {
		errs = append(errs, fmt.Sprintf("score range invalid: min %d must be below max %d", rec.MinScore, rec.MaxScore))
	}
	if rec.MinRevenue >= rec.MaxRevenue {
		errs = append(errs, fmt.Sprintf("revenue range invalid: min %.0f must be below max %.0f", rec.MinRevenue, rec.MaxRevenue))
	}
	act := c.DataGeneration.BusinessActivities
	if act.MinDurationMinutes >= act.MaxDurationMinutes {
		errs = append(errs, fmt.Sprintf("duration range invalid: min %d must be below max %d", act.MinDurationMinutes, act.MaxDurationMinutes))
	}

	tz := c.Timezone
	if tz.StartHour < 0 || tz.EndHour > 24 || tz.StartHour >= tz.EndHour {
		errs = append(errs, fmt.Sprintf("business hours invalid: start %d, end %d", tz.StartHour, tz.EndHour))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// IsBusinessHours reports whether t falls on a configured business day
// within [StartHour, EndHour) in the configured location.
func (c *Config) IsBusinessHours(t time.Time) bool {
	if loc, err := time.LoadLocation(c.Timezone.Location); err == nil {
		t = t.In(loc)
	}
	day := false
	for _, d := range c.Timezone.BusinessDays {
		if t.Weekday() == d {
			day = true
			break
		}
	}
	if !day {
		return false
	}
	return t.Hour() >= c.Timezone.StartHour && t.Hour() < c.Timezone.EndHour
}
