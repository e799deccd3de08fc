package updater

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickWeighted(t *testing.T) {
	t.Run("Should converge to configured proportions", func(t *testing.T) {
		dist := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
		const n = 50000

		counts := make(map[string]int)
		for i := 0; i < n; i++ {
			key := PickWeighted(dist)
			_, known := dist[key]
			require.True(t, known, "draw returned a key outside the map: %q", key)
			counts[key]++
		}

		for key, p := range dist {
			got := float64(counts[key]) / n
			assert.InDelta(t, p, got, 0.02, "proportion for %q", key)
		}
	})

	t.Run("Underfull distribution still returns a member key", func(t *testing.T) {
		dist := map[string]float64{"x": 0.2, "y": 0.2}
		for i := 0; i < 1000; i++ {
			key := PickWeighted(dist)
			_, known := dist[key]
			require.True(t, known)
		}
	})

	t.Run("Empty map returns empty string", func(t *testing.T) {
		assert.Equal(t, "", PickWeighted(nil))
	})
}

func TestIntBetween(t *testing.T) {
	for i := 0; i < 500; i++ {
		v := IntBetween(3, 7)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 7)
	}
	assert.Equal(t, 5, IntBetween(5, 5))
	assert.Equal(t, 5, IntBetween(5, 2))
}

func TestDecimalBetween(t *testing.T) {
	for i := 0; i < 500; i++ {
		v := DecimalBetween(1.5, 9.5)
		assert.GreaterOrEqual(t, v, 1.5)
		assert.Less(t, v, 9.5)
	}
}

func TestDateBetween(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	for i := 0; i < 200; i++ {
		v := DateBetween(start, end)
		assert.False(t, v.Before(start))
		assert.True(t, v.Before(end))
	}
}

func TestBusinessHoursDate(t *testing.T) {
	tz := DefaultConfig().Timezone
	for i := 0; i < 300; i++ {
		d := BusinessHoursDate(tz, 14)
		assert.NotEqual(t, time.Saturday, d.Weekday(), "weekend dates must be pushed to Monday")
		assert.NotEqual(t, time.Sunday, d.Weekday())
		assert.GreaterOrEqual(t, d.Hour(), tz.StartHour)
		assert.Less(t, d.Hour(), tz.EndHour)
	}
}

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}
