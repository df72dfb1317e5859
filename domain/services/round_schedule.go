package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule parses a standard five field cron expression. An empty
// expression yields a nil schedule, meaning rounds close on duration alone.
func ParseSchedule(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, nil
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid round schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// CalculateEndTime returns the earliest close time of a round opened at now
func CalculateEndTime(now time.Time, minDuration time.Duration, schedule cron.Schedule) time.Time {
	end := now.Add(minDuration)
	if schedule == nil {
		return end
	}
	next := schedule.Next(now)
	if next.After(end) {
		return next.UTC()
	}
	return end
}
