package updater

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Shared random-generation helpers for the concrete updaters. These
// are composed, not inherited: each updater calls them directly.

// IntBetween returns a random int in [min, max].
func IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// DecimalBetween returns a random float64 in [min, max).
func DecimalBetween(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rand.Float64()*(max-min)
}

// Pick returns a uniformly random element of items.
func Pick[T any](items []T) T {
	return items[rand.Intn(len(items))]
}

// PickWeighted draws one key from a probability map using cumulative
// sampling. Keys are walked in sorted order so the draw is independent
// of Go's randomized map iteration. If the probabilities sum to less
// than 1 and the draw lands past the last threshold, the first key is
// returned.
func PickWeighted(dist map[string]float64) string {
	if len(dist) == 0 {
		return ""
	}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := rand.Float64()
	var cum float64
	for _, k := range keys {
		cum += dist[k]
		if r < cum {
			return k
		}
	}
	return keys[0]
}

// DateBetween returns a random instant in [start, end).
func DateBetween(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	span := end.Sub(start)
	return start.Add(time.Duration(rand.Int63n(int64(span))))
}

// BusinessHoursDate returns a random instant within the last
// lookbackDays that falls inside the configured business hours.
// Weekend dates are pushed forward to the following Monday.
func BusinessHoursDate(tz TimezoneConfig, lookbackDays int) time.Time {
	loc := time.UTC
	if l, err := time.LoadLocation(tz.Location); err == nil {
		loc = l
	}
	if lookbackDays <= 0 {
		lookbackDays = 7
	}

	day := time.Now().In(loc).AddDate(0, 0, -IntBetween(0, lookbackDays-1))
	switch day.Weekday() {
	case time.Saturday:
		day = day.AddDate(0, 0, 2)
	case time.Sunday:
		day = day.AddDate(0, 0, 1)
	}

	hour := IntBetween(tz.StartHour, tz.EndHour-1)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, IntBetween(0, 59), IntBetween(0, 59), 0, loc)
}

// NewID returns a fresh UUID string.
func NewID() string {
	return uuid.NewString()
}
