package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule checks that a schedule parses under the standard
// five-field cron format ("minute hour day month weekday").
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("cron schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidatePositiveDuration checks that a duration is strictly positive.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateIntRange checks that value lies in [min, max].
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) greater than max (%d)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}
	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}
	return nil
}

// ValidateChannel checks a Telegram channel reference: either a public
// "@username" or a numeric chat ID (possibly negative).
func ValidateChannel(channel string) error {
	if channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}
	if strings.HasPrefix(channel, "@") {
		if len(channel) < 2 {
			return fmt.Errorf("channel %q has no username after @", channel)
		}
		return nil
	}
	rest := strings.TrimPrefix(channel, "-")
	for _, r := range rest {
		if r < '0' || r > '9' {
			return fmt.Errorf("channel %q is neither @username nor a chat ID", channel)
		}
	}
	if rest == "" {
		return fmt.Errorf("channel %q is neither @username nor a chat ID", channel)
	}
	return nil
}
