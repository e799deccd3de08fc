package updater

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry(testLogger())

	first := NewRunner(newMock(), testLogger(), false)
	second := NewRunner(newMock(), testLogger(), false)

	reg.Register("mock", first, "crm", "first")
	reg.Register("mock", second, "crm", "second")

	assert.Equal(t, 1, reg.Count())
	got, ok := reg.Get("mock")
	require.True(t, ok)
	assert.Same(t, second, got)

	entry, ok := reg.Entry("mock")
	require.True(t, ok)
	assert.Equal(t, "second", entry.Description)
}

func TestRegistryExecution(t *testing.T) {
	ctx := context.Background()

	t.Run("One failure never blocks the batch", func(t *testing.T) {
		reg := NewRegistry(testLogger())

		good := newMock()
		bad := newMock()
		bad.insertErr = errors.New("store down")

		reg.Register("good", NewRunner(good, testLogger(), false), "", "")
		reg.Register("bad", NewRunner(bad, testLogger(), false), "", "")

		results := reg.ExecuteAll(ctx)
		require.Len(t, results, 2)
		assert.True(t, results["good"].Success)
		assert.False(t, results["bad"].Success)
	})

	t.Run("Unknown name yields synthesized failure", func(t *testing.T) {
		reg := NewRegistry(testLogger())
		results := reg.ExecuteSpecific(ctx, []string{"ghost"})
		require.Contains(t, results, "ghost")
		assert.False(t, results["ghost"].Success)
		assert.Equal(t, []string{"updater not found"}, results["ghost"].Errors)
	})

	t.Run("Disabled updater reported but batch continues", func(t *testing.T) {
		reg := NewRegistry(testLogger())
		runner := NewRunner(newMock(), testLogger(), false)
		reg.Register("mock", runner, "", "")
		require.NoError(t, reg.SetEnabled("mock", false))

		results := reg.ExecuteAll(ctx)
		assert.False(t, results["mock"].Success)
		assert.Equal(t, []string{"updater is disabled"}, results["mock"].Errors)
	})
}

func TestRegistryMetrics(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(testLogger())

	a := newMock()
	b := newMock()
	b.insertErr = errors.New("down")
	reg.Register("a", NewRunner(a, testLogger(), false), "", "")
	reg.Register("b", NewRunner(b, testLogger(), false), "", "")

	reg.ExecuteAll(ctx)
	reg.ExecuteAll(ctx)

	agg := reg.Aggregated()
	assert.Equal(t, 2, agg.Updaters)
	assert.Equal(t, 4, agg.TotalExecutions)
	assert.Equal(t, 2, agg.SuccessfulExecutions)
	assert.Equal(t, 2, agg.FailedExecutions)
}

func TestRegistryValidateAll(t *testing.T) {
	reg := NewRegistry(testLogger())

	valid := newMock()
	reg.Register("valid", NewRunner(valid, testLogger(), false), "", "")
	assert.Empty(t, reg.ValidateAll())

	orphan := newMock()
	orphan.tenant = ""
	reg.Register("orphan", NewRunner(orphan, testLogger(), false), "", "")

	errs := reg.ValidateAll()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "orphan")
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register("zeta", NewRunner(newMock(), testLogger(), false), "", "")
	reg.Register("alpha", NewRunner(newMock(), testLogger(), false), "", "")
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}
