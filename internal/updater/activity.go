package updater

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"crm-updater/internal/logging"
	"crm-updater/internal/models"
)

var activitySubjects = map[string][]string{
	"call":    {"Intro call", "Pricing discussion", "Renewal check-in", "Follow-up call"},
	"email":   {"Quote sent", "Contract terms", "Service summary", "Meter read reminder"},
	"meeting": {"On-site walkthrough", "Fleet review", "Quarterly business review"},
	"note":    {"Left voicemail", "Gatekeeper contact", "Competitor mentioned"},
	"demo":    {"Color MFP demo", "Production printer demo", "Document workflow demo"},
}

// ActivityUpdater synthesizes touchpoint activity rows against
// existing business records.
type ActivityUpdater struct {
	storeUpdater
	recordIDs []string
}

func NewActivityUpdater(db *gorm.DB, cfg *Config, log *logging.Logger) *ActivityUpdater {
	return &ActivityUpdater{storeUpdater: storeUpdater{db: db, cfg: cfg, log: log}}
}

func (u *ActivityUpdater) Name() string { return string(KindActivity) }

// ValidateExecution requires at least one business record to attach
// activities to. The fetched identifiers are reused by GenerateData.
func (u *ActivityUpdater) ValidateExecution(ctx context.Context) error {
	ids, err := u.businessRecordIDs(ctx, 200)
	if err != nil {
		return fmt.Errorf("fetching business records: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no business records exist for tenant %s", u.cfg.TenantID)
	}
	u.recordIDs = ids
	return nil
}

func (u *ActivityUpdater) GenerateData(ctx context.Context) ([]Record, error) {
	gen := u.cfg.DataGeneration.BusinessActivities
	n := IntBetween(gen.MinPerRun, gen.MaxPerRun)

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		typ := PickWeighted(gen.Types)
		activity := &models.BusinessRecordActivity{
			ID:               NewID(),
			TenantID:         u.cfg.TenantID,
			BusinessRecordID: Pick(u.recordIDs),
			Type:             typ,
			Subject:          Pick(activitySubjects[typ]),
			OccurredAt:       BusinessHoursDate(u.cfg.Timezone, u.cfg.Execution.LookbackDays),
		}

		switch typ {
		case "call":
			activity.Direction = Pick([]string{"inbound", "outbound"})
			activity.DurationMinutes = IntBetween(gen.MinDurationMinutes, gen.MaxDurationMinutes)
			activity.Outcome = PickWeighted(gen.Outcomes)
		case "demo":
			activity.Outcome = PickWeighted(gen.Outcomes)
			// Only a completed demo gets a follow-up scheduled.
			if activity.Outcome == "completed" {
				followUp := activity.OccurredAt.AddDate(0, 0, IntBetween(2, 10))
				activity.FollowUpAt = &followUp
			}
		case "meeting":
			activity.DurationMinutes = IntBetween(gen.MinDurationMinutes, gen.MaxDurationMinutes)
		}

		records = append(records, activity)
	}
	return records, nil
}

func (u *ActivityUpdater) InsertData(ctx context.Context, records []Record, dryRun bool) (int, error) {
	if dryRun {
		u.logDryRun(u.Name(), records)
		return len(records), nil
	}
	return u.insertBatch(ctx, records)
}

var _ Updater = (*ActivityUpdater)(nil)
