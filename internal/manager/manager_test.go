package manager

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crm-updater/internal/logging"
	"crm-updater/internal/models"
	"crm-updater/internal/updater"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.BusinessRecord{},
		&models.BusinessRecordActivity{},
		&models.ServiceTicket{},
	))
	return db
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.Options{Level: logging.LevelError})
	}
	m, err := New(newTestDB(t), opts)
	require.NoError(t, err)
	return m
}

func str(s string) *string { return &s }

func TestManagerStart(t *testing.T) {
	t.Run("Starts with the default configuration", func(t *testing.T) {
		m := newTestManager(t, Options{})
		require.NoError(t, m.Start())
		defer m.Stop()
		assert.True(t, m.IsRunning())
	})

	t.Run("Rejects a double start", func(t *testing.T) {
		m := newTestManager(t, Options{})
		require.NoError(t, m.Start())
		defer m.Stop()
		require.Error(t, m.Start())
	})

	t.Run("Refuses to start on an invalid tenant", func(t *testing.T) {
		m := newTestManager(t, Options{
			Overrides: &updater.Overrides{TenantID: str("not-a-uuid")},
		})
		err := m.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Contains(t, err.Error(), "not a valid UUID")
		assert.False(t, m.IsRunning())
	})

	t.Run("Aggregates every violation into one error", func(t *testing.T) {
		bad := "*/10 5"
		m := newTestManager(t, Options{
			Overrides: &updater.Overrides{
				TenantID: str("not-a-uuid"),
				Schedules: &updater.ScheduleOverrides{
					BusinessRecords: &updater.ScheduleEntryOverrides{Cron: &bad},
				},
			},
		})
		err := m.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid UUID")
		assert.Contains(t, err.Error(), "must have 5-6 fields")
	})
}

func TestManagerRejectsMissingCustomer(t *testing.T) {
	log := logging.New(logging.Options{Level: logging.LevelError})
	_, err := New(newTestDB(t), Options{
		Logger:    log,
		Overrides: &updater.Overrides{CustomerID: str("")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer ID")
}

func TestManagerExecute(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Options{})

	t.Run("Errors on an unknown updater", func(t *testing.T) {
		_, err := m.ExecuteUpdater(ctx, "nonsense")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown updater")
	})

	t.Run("Creates a lead on demand", func(t *testing.T) {
		res, err := m.ExecuteUpdater(ctx, string(updater.KindBusinessRecord))
		require.NoError(t, err)
		require.True(t, res.Success, "errors: %v", res.Errors)
		assert.Equal(t, 1, res.RecordsUpdated)
	})

	t.Run("Dry run carries the generated records", func(t *testing.T) {
		res, err := m.ExecuteUpdaterDryRun(ctx, string(updater.KindBusinessRecord))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.NotEmpty(t, res.Data)
		assert.Equal(t, len(res.Data), res.RecordsUpdated)
	})
}

func TestManagerUpdateConfiguration(t *testing.T) {
	t.Run("Restarts a running manager with the new schedules", func(t *testing.T) {
		m := newTestManager(t, Options{})
		require.NoError(t, m.Start())
		defer m.Stop()

		cron := "*/10 * * * *"
		require.NoError(t, m.UpdateConfiguration(updater.Overrides{
			Schedules: &updater.ScheduleOverrides{
				BusinessActivities: &updater.ScheduleEntryOverrides{Cron: &cron},
			},
		}))

		assert.True(t, m.IsRunning())
		assert.Equal(t, cron, m.Config().Schedules.BusinessActivities.Cron)
	})

	t.Run("Leaves a stopped manager stopped", func(t *testing.T) {
		m := newTestManager(t, Options{})
		days := 14
		require.NoError(t, m.UpdateConfiguration(updater.Overrides{
			Execution: &updater.ExecutionOverrides{LookbackDays: &days},
		}))
		assert.False(t, m.IsRunning())
		assert.Equal(t, 14, m.Config().Execution.LookbackDays)
	})

	t.Run("Propagates the dry run flag to every runner", func(t *testing.T) {
		m := newTestManager(t, Options{})
		dry := true
		require.NoError(t, m.UpdateConfiguration(updater.Overrides{
			Execution: &updater.ExecutionOverrides{DryRun: &dry},
		}))

		res, err := m.ExecuteUpdater(context.Background(), string(updater.KindBusinessRecord))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.NotEmpty(t, res.Data, "dry run results carry the generated records")
	})
}

func TestManagerToggleUpdater(t *testing.T) {
	m := newTestManager(t, Options{})
	name := string(updater.KindActivity)

	require.NoError(t, m.SetUpdaterEnabled(name, false))
	assert.False(t, m.Config().Schedules.BusinessActivities.Enabled)

	res, err := m.ExecuteUpdater(context.Background(), name)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "updater is disabled")

	require.Error(t, m.SetUpdaterEnabled("nonsense", true))
}

func TestManagerStatus(t *testing.T) {
	m := newTestManager(t, Options{})
	require.NoError(t, m.Start())
	defer m.Stop()

	st := m.Status()
	assert.True(t, st.IsRunning)
	assert.True(t, st.Validation.IsValid)
	require.Len(t, st.Updaters, 3)
	assert.Len(t, st.Jobs, 3)
	assert.Len(t, st.NextExecutions, 3)

	names := make([]string, 0, len(st.Updaters))
	for _, u := range st.Updaters {
		names = append(names, u.Name)
		assert.True(t, u.Enabled)
	}
	assert.ElementsMatch(t, []string{
		string(updater.KindActivity),
		string(updater.KindServiceTicket),
		string(updater.KindBusinessRecord),
	}, names)
}

func TestManagerMetrics(t *testing.T) {
	m := newTestManager(t, Options{})
	ctx := context.Background()

	_, err := m.ExecuteUpdater(ctx, string(updater.KindBusinessRecord))
	require.NoError(t, err)
	// The activity updater fails without seeded business records.
	res, err := m.ExecuteUpdater(ctx, string(updater.KindActivity))
	require.NoError(t, err)
	require.False(t, res.Success)

	perUpdater, agg := m.Metrics()
	assert.Equal(t, 1, perUpdater[string(updater.KindBusinessRecord)].SuccessfulExecutions)
	assert.Equal(t, 1, perUpdater[string(updater.KindActivity)].FailedExecutions)
	assert.Equal(t, 2, agg.TotalExecutions)
	assert.Equal(t, 1, agg.SuccessfulExecutions)
	assert.Equal(t, 1, agg.FailedExecutions)
}
