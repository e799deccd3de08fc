package updater

import (
	"context"

	"gorm.io/gorm"

	"crm-updater/internal/logging"
)

// storeUpdater is the shared backbone of the concrete updaters: the
// gorm handle, the resolved configuration, and the logger.
type storeUpdater struct {
	db  *gorm.DB
	cfg *Config
	log *logging.Logger
}

func (s *storeUpdater) TenantID() string {
	return s.cfg.TenantID
}

// businessRecordIDs fetches up to limit business record identifiers
// for the configured tenant.
func (s *storeUpdater) businessRecordIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("business_records").
		Where("tenant_id = ?", s.cfg.TenantID).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// insertBatch writes all records in a single transaction. One failed
// insert rolls the whole batch back.
func (s *storeUpdater) insertBatch(ctx context.Context, records []Record) (int, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// logDryRun reports the would-be records instead of persisting them.
func (s *storeUpdater) logDryRun(name string, records []Record) {
	s.log.Info("dry run, skipping insert", map[string]interface{}{
		"updater": name,
		"records": records,
	})
}
