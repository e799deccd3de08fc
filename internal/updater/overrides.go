package updater

import "time"

// Overrides is a partial configuration update. Nil fields leave the
// corresponding config subtree untouched; non-nil leaves replace their
// target. Distribution maps replace wholesale so a partial update can
// never leave a map whose probabilities no longer sum to 1.
type Overrides struct {
	TenantID   *string `json:"tenant_id,omitempty"`
	CustomerID *string `json:"customer_id,omitempty"`

	Schedules      *ScheduleOverrides       `json:"schedules,omitempty"`
	DataGeneration *DataGenerationOverrides `json:"data_generation,omitempty"`
	Execution      *ExecutionOverrides      `json:"execution,omitempty"`
	Timezone       *TimezoneOverrides       `json:"timezone,omitempty"`
}

type ScheduleOverrides struct {
	BusinessActivities *ScheduleEntryOverrides `json:"business_activities,omitempty"`
	ServiceTickets     *ScheduleEntryOverrides `json:"service_tickets,omitempty"`
	BusinessRecords    *ScheduleEntryOverrides `json:"business_records,omitempty"`
}

type ScheduleEntryOverrides struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Cron    *string `json:"cron,omitempty"`
}

type DataGenerationOverrides struct {
	BusinessActivities *ActivityGenOverrides `json:"business_activities,omitempty"`
	ServiceTickets     *TicketGenOverrides   `json:"service_tickets,omitempty"`
	BusinessRecords    *RecordGenOverrides   `json:"business_records,omitempty"`
}

type ActivityGenOverrides struct {
	Types              map[string]float64 `json:"types,omitempty"`
	Outcomes           map[string]float64 `json:"outcomes,omitempty"`
	MinPerRun          *int               `json:"min_per_run,omitempty"`
	MaxPerRun          *int               `json:"max_per_run,omitempty"`
	MinDurationMinutes *int               `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes *int               `json:"max_duration_minutes,omitempty"`
}

type TicketGenOverrides struct {
	Priorities     map[string]float64 `json:"priorities,omitempty"`
	Statuses       map[string]float64 `json:"statuses,omitempty"`
	MinPerRun      *int               `json:"min_per_run,omitempty"`
	MaxPerRun      *int               `json:"max_per_run,omitempty"`
	StartingNumber *int               `json:"starting_number,omitempty"`
}

type RecordGenOverrides struct {
	LeadSources map[string]float64 `json:"lead_sources,omitempty"`
	Industries  map[string]float64 `json:"industries,omitempty"`
	MinScore    *int               `json:"min_score,omitempty"`
	MaxScore    *int               `json:"max_score,omitempty"`
	MinRevenue  *float64           `json:"min_revenue,omitempty"`
	MaxRevenue  *float64           `json:"max_revenue,omitempty"`
}

type ExecutionOverrides struct {
	MaxConcurrentJobs *int  `json:"max_concurrent_jobs,omitempty"`
	DryRun            *bool `json:"dry_run,omitempty"`
	LookbackDays      *int  `json:"lookback_days,omitempty"`
}

type TimezoneOverrides struct {
	Location     *string        `json:"location,omitempty"`
	BusinessDays []time.Weekday `json:"business_days,omitempty"`
	StartHour    *int           `json:"start_hour,omitempty"`
	EndHour      *int           `json:"end_hour,omitempty"`
}

// Apply merges the overrides into the config, leaving untouched
// subtrees as they were.
func (c *Config) Apply(o Overrides) {
	setStr(&c.TenantID, o.TenantID)
	setStr(&c.CustomerID, o.CustomerID)

	if o.Schedules != nil {
		applyScheduleEntry(&c.Schedules.BusinessActivities, o.Schedules.BusinessActivities)
		applyScheduleEntry(&c.Schedules.ServiceTickets, o.Schedules.ServiceTickets)
		applyScheduleEntry(&c.Schedules.BusinessRecords, o.Schedules.BusinessRecords)
	}

	if o.DataGeneration != nil {
		if a := o.DataGeneration.BusinessActivities; a != nil {
			dst := &c.DataGeneration.BusinessActivities
			if a.Types != nil {
				dst.Types = a.Types
			}
			if a.Outcomes != nil {
				dst.Outcomes = a.Outcomes
			}
			setInt(&dst.MinPerRun, a.MinPerRun)
			setInt(&dst.MaxPerRun, a.MaxPerRun)
			setInt(&dst.MinDurationMinutes, a.MinDurationMinutes)
			setInt(&dst.MaxDurationMinutes, a.MaxDurationMinutes)
		}
		if t := o.DataGeneration.ServiceTickets; t != nil {
			dst := &c.DataGeneration.ServiceTickets
			if t.Priorities != nil {
				dst.Priorities = t.Priorities
			}
			if t.Statuses != nil {
				dst.Statuses = t.Statuses
			}
			setInt(&dst.MinPerRun, t.MinPerRun)
			setInt(&dst.MaxPerRun, t.MaxPerRun)
			setInt(&dst.StartingNumber, t.StartingNumber)
		}
		if r := o.DataGeneration.BusinessRecords; r != nil {
			dst := &c.DataGeneration.BusinessRecords
			if r.LeadSources != nil {
				dst.LeadSources = r.LeadSources
			}
			if r.Industries != nil {
				dst.Industries = r.Industries
			}
			setInt(&dst.MinScore, r.MinScore)
			setInt(&dst.MaxScore, r.MaxScore)
			setFloat(&dst.MinRevenue, r.MinRevenue)
			setFloat(&dst.MaxRevenue, r.MaxRevenue)
		}
	}

	if o.Execution != nil {
		setInt(&c.Execution.MaxConcurrentJobs, o.Execution.MaxConcurrentJobs)
		setBool(&c.Execution.DryRun, o.Execution.DryRun)
		setInt(&c.Execution.LookbackDays, o.Execution.LookbackDays)
	}

	if o.Timezone != nil {
		setStr(&c.Timezone.Location, o.Timezone.Location)
		if o.Timezone.BusinessDays != nil {
			c.Timezone.BusinessDays = o.Timezone.BusinessDays
		}
		setInt(&c.Timezone.StartHour, o.Timezone.StartHour)
		setInt(&c.Timezone.EndHour, o.Timezone.EndHour)
	}
}

func applyScheduleEntry(dst *ScheduleEntry, o *ScheduleEntryOverrides) {
	if o == nil {
		return
	}
	setBool(&dst.Enabled, o.Enabled)
	setStr(&dst.Cron, o.Cron)
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
