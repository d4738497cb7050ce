// Package schedule describes backup recurrence and registers the host OS
// task that re-invokes the agent.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Frequency is how often the backup task recurs.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Once    Frequency = "ONCE"
	None    Frequency = "NONE"
)

// ErrNotRecurring is returned when a cron expression is requested for a
// spec that has no recurring trigger.
var ErrNotRecurring = errors.New("schedule is not recurring")

// weekdayCodes are the accepted weekday abbreviations, also understood by
// cron and schtasks.
var weekdayCodes = map[string]bool{
	"MON": true, "TUE": true, "WED": true, "THU": true,
	"FRI": true, "SAT": true, "SUN": true,
}

// Spec is an immutable recurrence description. Weekdays applies to Weekly
// and MonthDays to Monthly; both are empty otherwise.
type Spec struct {
	Frequency Frequency
	TimeOfDay string // HH:MM, 24-hour clock
	Weekdays  []string
	MonthDays []int
}

// ParseFrequency parses a persisted schedule type. An empty value means no
// schedule.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToUpper(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Once:
		return Once, nil
	default:
		return None, fmt.Errorf("unknown schedule type %q", s)
	}
}

// Parse builds a validated Spec from the persisted config fields: schedule
// type, HH:MM time, comma-separated weekday codes and comma-separated
// days of month.
func Parse(typ, timeOfDay, days, dates string) (Spec, error) {
	freq, err := ParseFrequency(typ)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{Frequency: freq, TimeOfDay: strings.TrimSpace(timeOfDay)}

	for _, day := range strings.Split(days, ",") {
		day = strings.ToUpper(strings.TrimSpace(day))
		if day != "" {
			spec.Weekdays = append(spec.Weekdays, day)
		}
	}

	for _, date := range strings.Split(dates, ",") {
		date = strings.TrimSpace(date)
		if date == "" {
			continue
		}
		d, err := strconv.Atoi(date)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid day of month %q", date)
		}
		spec.MonthDays = append(spec.MonthDays, d)
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate enforces the per-frequency field requirements.
func (s Spec) Validate() error {
	switch s.Frequency {
	case None:
		return nil
	case Daily, Once:
		_, _, err := s.clock()
		return err
	case Weekly:
		if _, _, err := s.clock(); err != nil {
			return err
		}
		if len(s.Weekdays) == 0 {
			return errors.New("weekly schedule requires at least one weekday")
		}
		for _, day := range s.Weekdays {
			if !weekdayCodes[day] {
				return fmt.Errorf("invalid weekday code %q", day)
			}
		}
		return nil
	case Monthly:
		if _, _, err := s.clock(); err != nil {
			return err
		}
		if len(s.MonthDays) == 0 {
			return errors.New("monthly schedule requires at least one day of month")
		}
		for _, d := range s.MonthDays {
			if d < 1 || d > 31 {
				return fmt.Errorf("day of month %d out of range", d)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}
}

// clock parses the HH:MM time of day.
func (s Spec) clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.TimeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s.TimeOfDay, err)
	}
	return t.Hour(), t.Minute(), nil
}

// CronExpr renders the spec as a standard five-field cron expression. Only
// recurring frequencies have one; Once and None return ErrNotRecurring.
func (s Spec) CronExpr() (string, error) {
	switch s.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return "", ErrNotRecurring
	}

	hour, minute, err := s.clock()
	if err != nil {
		return "", err
	}

	var expr string
	switch s.Frequency {
	case Daily:
		expr = fmt.Sprintf("%d %d * * *", minute, hour)
	case Weekly:
		expr = fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(s.Weekdays, ","))
	case Monthly:
		days := make([]string, len(s.MonthDays))
		for i, d := range s.MonthDays {
			days[i] = strconv.Itoa(d)
		}
		expr = fmt.Sprintf("%d %d %s * *", minute, hour, strings.Join(days, ","))
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return "", fmt.Errorf("derived cron expression %q: %w", expr, err)
	}
	return expr, nil
}

// Next returns the first trigger time after from, for display and for the
// in-process daemon mode.
func (s Spec) Next(from time.Time) (time.Time, error) {
	expr, err := s.CronExpr()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
