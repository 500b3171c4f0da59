package compliance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusOnTime          Status = "OnTime"
	StatusLateFine        Status = "LateFine"
	StatusHalfUnpaidLeave Status = "HalfUnpaidLeave"
	StatusFullUnpaidLeave Status = "FullUnpaidLeave"
)

// Statuses lists every bucket from least to most severe.
var Statuses = []Status{StatusOnTime, StatusLateFine, StatusHalfUnpaidLeave, StatusFullUnpaidLeave}

func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Cutoffs are inclusive upper bounds, as offsets from local midnight.
type Cutoffs struct {
	OnTime   time.Duration
	LateFine time.Duration
	HalfDay  time.Duration
}

func DefaultCutoffs() Cutoffs {
	return Cutoffs{
		OnTime:   9*time.Hour + 30*time.Minute,
		LateFine: 10 * time.Hour,
		HalfDay:  12*time.Hour + 30*time.Minute,
	}
}

// ParseCutoffs reads three "HH:MM" or "HH:MM:SS" clock times.
func ParseCutoffs(onTime, lateFine, halfDay string) (Cutoffs, error) {
	var c Cutoffs
	var err error
	if c.OnTime, err = parseClock(onTime); err != nil {
		return Cutoffs{}, fmt.Errorf("on-time cutoff: %w", err)
	}
	if c.LateFine, err = parseClock(lateFine); err != nil {
		return Cutoffs{}, fmt.Errorf("late-fine cutoff: %w", err)
	}
	if c.HalfDay, err = parseClock(halfDay); err != nil {
		return Cutoffs{}, fmt.Errorf("half-day cutoff: %w", err)
	}
	if c.OnTime >= c.LateFine || c.LateFine >= c.HalfDay {
		return Cutoffs{}, fmt.Errorf("cutoffs must be strictly increasing")
	}
	return c, nil
}

func parseClock(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock time %q", value)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// Classifier buckets a report submission by its time of day in Location.
type Classifier struct {
	Cutoffs  Cutoffs
	Location *time.Location
}

func NewClassifier(cutoffs Cutoffs, loc *time.Location) Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return Classifier{Cutoffs: cutoffs, Location: loc}
}

// Classify ignores the date and sub-second precision of submission.
func (c Classifier) Classify(submission time.Time) Status {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := submission.In(loc)
	elapsed := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second

	switch {
	case elapsed <= c.Cutoffs.OnTime:
		return StatusOnTime
	case elapsed <= c.Cutoffs.LateFine:
		return StatusLateFine
	case elapsed <= c.Cutoffs.HalfDay:
		return StatusHalfUnpaidLeave
	default:
		return StatusFullUnpaidLeave
	}
}
