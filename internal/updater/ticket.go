package updater

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"crm-updater/internal/logging"
	"crm-updater/internal/models"
)

var ticketSubjects = []string{
	"Paper jam in finisher",
	"Streaks on color copies",
	"Toner low warning persists",
	"Network scan to folder failing",
	"Fuser error code SC555",
	"Quarterly preventive maintenance",
	"Drum replacement needed",
	"Print queue stuck",
}

// TicketUpdater synthesizes service tickets with sequential ST-<n>
// numbering per tenant.
type TicketUpdater struct {
	storeUpdater
	recordIDs []string
}

// NewTicketUpdater requires a customer ID: tickets cannot exist
// without one.
func NewTicketUpdater(db *gorm.DB, cfg *Config, log *logging.Logger) (*TicketUpdater, error) {
	if cfg.CustomerID == "" {
		return nil, fmt.Errorf("service ticket updater requires a customer ID")
	}
	return &TicketUpdater{storeUpdater: storeUpdater{db: db, cfg: cfg, log: log}}, nil
}

func (u *TicketUpdater) Name() string { return string(KindServiceTicket) }

func (u *TicketUpdater) ValidateExecution(ctx context.Context) error {
	if u.cfg.CustomerID == "" {
		return fmt.Errorf("customer ID is not configured")
	}
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

func (u *TicketUpdater) GenerateData(ctx context.Context) ([]Record, error) {
	gen := u.cfg.DataGeneration.ServiceTickets
	n := IntBetween(gen.MinPerRun, gen.MaxPerRun)
	seq := u.nextTicketNumber(ctx)

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		subject := Pick(ticketSubjects)
		ticket := &models.ServiceTicket{
			ID:               NewID(),
			TenantID:         u.cfg.TenantID,
			CustomerID:       u.cfg.CustomerID,
			BusinessRecordID: Pick(u.recordIDs),
			TicketNumber:     fmt.Sprintf("ST-%d", seq+i),
			Priority:         PickWeighted(gen.Priorities),
			Status:           PickWeighted(gen.Statuses),
			Subject:          subject,
			Description:      fmt.Sprintf("Customer reported: %s", strings.ToLower(subject)),
			CreatedAt:        BusinessHoursDate(u.cfg.Timezone, u.cfg.Execution.LookbackDays),
		}
		records = append(records, ticket)
	}
	return records, nil
}

func (u *TicketUpdater) InsertData(ctx context.Context, records []Record, dryRun bool) (int, error) {
	if dryRun {
		u.logDryRun(u.Name(), records)
		return len(records), nil
	}
	return u.insertBatch(ctx, records)
}

// nextTicketNumber parses the numeric suffix of the tenant's most
// recent ticket number and increments it. A missing ticket or an
// unparseable number falls back to the configured starting number.
func (u *TicketUpdater) nextTicketNumber(ctx context.Context) int {
	fallback := u.cfg.DataGeneration.ServiceTickets.StartingNumber

	var last models.ServiceTicket
	err := u.db.WithContext(ctx).
		Where("tenant_id = ?", u.cfg.TenantID).
		Order("created_at DESC").
		First(&last).Error
	if err != nil {
		return fallback
	}

	suffix, ok := strings.CutPrefix(last.TicketNumber, "ST-")
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return fallback
	}
	return n + 1
}

var _ Updater = (*TicketUpdater)(nil)
