package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-updater/internal/logging"
)

// mockUpdater lets each lifecycle stage be failed independently.
type mockUpdater struct {
	name        string
	tenant      string
	validateErr error
	generated   []Record
	generateErr error
	insertErr   error
	panicIn     string
	insertCalls int
	lastDryRun  bool
}

func (m *mockUpdater) Name() string     { return m.name }
func (m *mockUpdater) TenantID() string { return m.tenant }

func (m *mockUpdater) ValidateExecution(ctx context.Context) error {
	if m.panicIn == "validate" {
		panic("validate blew up")
	}
	return m.validateErr
}

func (m *mockUpdater) GenerateData(ctx context.Context) ([]Record, error) {
	if m.panicIn == "generate" {
		panic("generate blew up")
	}
	return m.generated, m.generateErr
}

func (m *mockUpdater) InsertData(ctx context.Context, records []Record, dryRun bool) (int, error) {
	m.insertCalls++
	m.lastDryRun = dryRun
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	return len(records), nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Level: logging.LevelError, Console: false, File: false})
}

func newMock() *mockUpdater {
	return &mockUpdater{
		name:      "mock",
		tenant:    "7a54c3f1-9e26-4d0b-b8a4-5f1c2d9e8b37",
		generated: []Record{"r1", "r2"},
	}
}

func TestRunnerExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled updater short-circuits without metrics", func(t *testing.T) {
		r := NewRunner(newMock(), testLogger(), false)
		r.SetEnabled(false)

		res := r.Execute(ctx)
		assert.False(t, res.Success)
		assert.Equal(t, []string{"updater is disabled"}, res.Errors)
		assert.Equal(t, 0, r.Metrics().TotalExecutions)
	})

	t.Run("Successful run updates metrics", func(t *testing.T) {
		m := newMock()
		r := NewRunner(m, testLogger(), false)

		res := r.Execute(ctx)
		require.True(t, res.Success)
		assert.Equal(t, 2, res.RecordsUpdated)
		assert.Nil(t, res.Data)
		assert.Equal(t, 1, m.insertCalls)
		assert.False(t, m.lastDryRun)

		metrics := r.Metrics()
		assert.Equal(t, 1, metrics.TotalExecutions)
		assert.Equal(t, 1, metrics.SuccessfulExecutions)
		assert.NotNil(t, metrics.LastExecution)
	})

	t.Run("Empty generation is an immediate success", func(t *testing.T) {
		m := newMock()
		m.generated = nil
		r := NewRunner(m, testLogger(), false)

		res := r.Execute(ctx)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.RecordsUpdated)
		assert.Equal(t, 0, m.insertCalls)
	})

	t.Run("Dry run suppresses writes and returns records", func(t *testing.T) {
		m := newMock()
		r := NewRunner(m, testLogger(), false)

		res := r.ExecuteDryRun(ctx)
		require.True(t, res.Success)
		assert.True(t, m.lastDryRun)
		assert.Equal(t, 2, res.RecordsUpdated)
		assert.Len(t, res.Data, 2)
	})
}

func TestRunnerNeverThrows(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		mod  func(*mockUpdater)
		want string
	}{
		{"validate error", func(m *mockUpdater) { m.validateErr = errors.New("no parent rows") }, "no parent rows"},
		{"generate error", func(m *mockUpdater) { m.generateErr = errors.New("bad distribution") }, "bad distribution"},
		{"insert error", func(m *mockUpdater) { m.insertErr = errors.New("store down") }, "store down"},
		{"validate panic", func(m *mockUpdater) { m.panicIn = "validate" }, "panic"},
		{"generate panic", func(m *mockUpdater) { m.panicIn = "generate" }, "panic"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMock()
			tc.mod(m)
			r := NewRunner(m, testLogger(), false)

			var res Result
			assert.NotPanics(t, func() { res = r.Execute(ctx) })
			require.False(t, res.Success)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, res.Errors[0], tc.want)

			metrics := r.Metrics()
			assert.Equal(t, 1, metrics.FailedExecutions)
			assert.Equal(t, res.Errors[0], metrics.LastError)
		})
	}
}

func TestRunnerMetricsAccumulation(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	r := NewRunner(m, testLogger(), false)

	const k = 6
	for i := 0; i < k; i++ {
		if i%2 == 0 {
			m.insertErr = errors.New("flaky store")
		} else {
			m.insertErr = nil
		}
		r.Execute(ctx)
	}

	metrics := r.Metrics()
	assert.Equal(t, k, metrics.TotalExecutions)
	assert.Equal(t, k, metrics.SuccessfulExecutions+metrics.FailedExecutions)
	assert.Equal(t, 3, metrics.FailedExecutions)
	assert.GreaterOrEqual(t, metrics.AverageExecutionTime, time.Duration(0))

	r.ResetMetrics()
	assert.Equal(t, 0, r.Metrics().TotalExecutions)
}
