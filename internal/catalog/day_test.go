package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf(t *testing.T) {
	morning := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	night := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, Day("2026-03-14"), DayOf(morning))
	assert.Equal(t, DayOf(morning), DayOf(night))
	assert.NotEqual(t, DayOf(night), DayOf(night.Add(time.Second)))
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, Day("2026-03-14"), day)

	_, err = ParseDay("14/03/2026")
	assert.Error(t, err)

	_, err = ParseDay("2026-13-01")
	assert.Error(t, err)
}
