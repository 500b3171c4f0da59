package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m, s int) time.Time {
	return time.Date(2025, 3, 14, h, m, s, 0, time.UTC)
}

func TestClassifyBoundaries(t *testing.T) {
	c := NewClassifier(DefaultCutoffs(), time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"midnight", at(0, 0, 0), StatusOnTime},
		{"on time cutoff", at(9, 30, 0), StatusOnTime},
		{"one second late", at(9, 30, 1), StatusLateFine},
		{"late fine cutoff", at(10, 0, 0), StatusLateFine},
		{"after late fine", at(10, 0, 1), StatusHalfUnpaidLeave},
		{"half day cutoff", at(12, 30, 0), StatusHalfUnpaidLeave},
		{"after half day", at(12, 30, 1), StatusFullUnpaidLeave},
		{"end of day", at(23, 59, 59), StatusFullUnpaidLeave},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.at))
		})
	}
}

func TestClassifyIgnoresSubSecondAndDate(t *testing.T) {
	c := NewClassifier(DefaultCutoffs(), time.UTC)
	assert.Equal(t, StatusOnTime, c.Classify(time.Date(2025, 3, 14, 9, 30, 0, 999_999_999, time.UTC)))
	assert.Equal(t, StatusLateFine, c.Classify(time.Date(1999, 12, 31, 9, 45, 0, 0, time.UTC)))
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(DefaultCutoffs(), time.UTC)
	ts := at(11, 15, 0)
	assert.Equal(t, c.Classify(ts), c.Classify(ts))
}

func TestClassifyUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*60*60)
	c := NewClassifier(DefaultCutoffs(), loc)
	// 03:00 UTC is 09:00 in UTC+6.
	assert.Equal(t, StatusOnTime, c.Classify(at(3, 0, 0)))
	// 07:00 UTC is 13:00 in UTC+6.
	assert.Equal(t, StatusFullUnpaidLeave, c.Classify(at(7, 0, 0)))
}

func TestParseCutoffs(t *testing.T) {
	c, err := ParseCutoffs("09:30", "10:00", "12:30:00")
	require.NoError(t, err)
	assert.Equal(t, DefaultCutoffs(), c)

	_, err = ParseCutoffs("9", "10:00", "12:30")
	assert.Error(t, err)
	_, err = ParseCutoffs("09:30", "25:00", "12:30")
	assert.Error(t, err)
	_, err = ParseCutoffs("10:00", "09:30", "12:30")
	assert.Error(t, err)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusLateFine.Valid())
	assert.False(t, Status("Late").Valid())
}
