package updater

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"crm-updater/internal/logging"
	"crm-updater/internal/models"
)

var (
	companyPrefixes = []string{"Summit", "Lakeside", "Pinnacle", "Heritage", "Cornerstone", "Meridian", "Beacon", "Northgate"}
	companySuffixes = []string{"Law Group", "Medical Partners", "Consulting", "Properties", "Financial", "Academy", "Industries", "Logistics"}
	contactFirst    = []string{"Alex", "Jordan", "Casey", "Morgan", "Taylor", "Riley", "Quinn", "Avery"}
	contactLast     = []string{"Nguyen", "Patel", "Garcia", "Kim", "Okafor", "Schmidt", "Rossi", "Johnson"}
)

// RecordUpdater synthesizes one new lead per invocation.
type RecordUpdater struct {
	storeUpdater
}

func NewRecordUpdater(db *gorm.DB, cfg *Config, log *logging.Logger) *RecordUpdater {
	return &RecordUpdater{storeUpdater: storeUpdater{db: db, cfg: cfg, log: log}}
}

func (u *RecordUpdater) Name() string { return string(KindBusinessRecord) }

// ValidateExecution needs no parent rows: leads are created from
// scratch, only the tenant must be set.
func (u *RecordUpdater) ValidateExecution(ctx context.Context) error {
	if u.cfg.TenantID == "" {
		return fmt.Errorf("tenant ID is not configured")
	}
	return nil
}

func (u *RecordUpdater) GenerateData(ctx context.Context) ([]Record, error) {
	gen := u.cfg.DataGeneration.BusinessRecords

	company := Pick(companyPrefixes) + " " + Pick(companySuffixes)
	first := Pick(contactFirst)
	last := Pick(contactLast)
	domain := strings.ToLower(strings.ReplaceAll(company, " ", "")) + ".example.com"

	lead := &models.BusinessRecord{
		ID:            NewID(),
		TenantID:      u.cfg.TenantID,
		CustomerID:    u.cfg.CustomerID,
		Name:          company,
		ContactName:   first + " " + last,
		ContactEmail:  strings.ToLower(first) + "." + strings.ToLower(last) + "@" + domain,
		Status:        "lead",
		Source:        PickWeighted(gen.LeadSources),
		Industry:      PickWeighted(gen.Industries),
		Score:         IntBetween(gen.MinScore, gen.MaxScore),
		AnnualRevenue: math.Round(DecimalBetween(gen.MinRevenue, gen.MaxRevenue)),
	}
	return []Record{lead}, nil
}

func (u *RecordUpdater) InsertData(ctx context.Context, records []Record, dryRun bool) (int, error) {
	if dryRun {
		u.logDryRun(u.Name(), records)
		return len(records), nil
	}
	return u.insertBatch(ctx, records)
}

var _ Updater = (*RecordUpdater)(nil)
