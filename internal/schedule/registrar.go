package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TaskName is the name the recurring task is registered under.
const TaskName = "tidesafe-backup"

// crontabMarker tags the line owned by tidesafe in the user's crontab so
// re-registration can replace it.
const crontabMarker = "# " + TaskName

// ErrNotVerified indicates the create call appeared to succeed but the
// scheduler's own query did not confirm the task exists.
var ErrNotVerified = errors.New("scheduler did not confirm task registration")

// Runner executes a host scheduler command. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return cmd.CombinedOutput()
}

// Registrar performs idempotent create-or-replace registration of the
// recurring OS task. On Windows it drives schtasks, elsewhere the user
// crontab.
type Registrar struct {
	runner  Runner
	exePath string
	goos    string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRegistrar creates a registrar that re-invokes exePath with no
// arguments.
func NewRegistrar(exePath string, logger zerolog.Logger) *Registrar {
	return &Registrar{
		runner:  execRunner{},
		exePath: exePath,
		goos:    runtime.GOOS,
		now:     time.Now,
		logger:  logger.With().Str("component", "schedule_registrar").Logger(),
	}
}

// Register applies the spec to the host scheduler and verifies the task
// round-trips. Frequency None performs no scheduler calls at all.
func (r *Registrar) Register(ctx context.Context, spec Spec) error {
	if spec.Frequency == None {
		r.logger.Info().Msg("no schedule configured, skipping task registration")
		return nil
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	if r.goos == "windows" {
		return r.registerSchtasks(ctx, spec)
	}
	return r.registerCrontab(ctx, spec)
}

func (r *Registrar) registerSchtasks(ctx context.Context, spec Spec) error {
	args := buildSchtasksArgs(spec, r.exePath, r.now())

	out, err := r.runner.Run(ctx, nil, "schtasks", args...)
	if err != nil {
		return fmt.Errorf("schtasks create: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	// A zero exit status from /Create alone is not trusted; require the
	// scheduler to hand the task back by name.
	out, err = r.runner.Run(ctx, nil, "schtasks", "/Query", "/TN", TaskName)
	if err != nil || !strings.Contains(string(out), TaskName) {
		return fmt.Errorf("%w: %s", ErrNotVerified, TaskName)
	}

	r.logger.Info().
		Str("task", TaskName).
		Str("frequency", string(spec.Frequency)).
		Str("time", spec.TimeOfDay).
		Msg("task registered")
	return nil
}

// buildSchtasksArgs renders the schtasks /Create invocation for the spec.
// /F replaces any existing task under the same name.
func buildSchtasksArgs(spec Spec, exePath string, now time.Time) []string {
	args := []string{"/Create", "/TN", TaskName, "/TR", fmt.Sprintf("%q", exePath), "/ST", spec.TimeOfDay, "/F"}

	switch spec.Frequency {
	case Daily:
		args = append(args, "/SC", "DAILY")
	case Weekly:
		args = append(args, "/SC", "WEEKLY", "/D", strings.Join(spec.Weekdays, ","))
	case Monthly:
		days := make([]string, len(spec.MonthDays))
		for i, d := range spec.MonthDays {
			days[i] = strconv.Itoa(d)
		}
		args = append(args, "/SC", "MONTHLY", "/D", strings.Join(days, ","))
	case Once:
		// Dated the registration day; the scheduler fires it only if the
		// time is still ahead.
		args = append(args, "/SC", "ONCE", "/SD", now.Format("01/02/2006"))
	}

	return args
}

func (r *Registrar) registerCrontab(ctx context.Context, spec Spec) error {
	line, err := r.crontabLine(spec)
	if err != nil {
		return err
	}

	// crontab -l exits non-zero when no crontab exists yet; treat that as
	// an empty table.
	existing, _ := r.runner.Run(ctx, nil, "crontab", "-l")

	var kept []string
	for _, l := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(l) == "" || strings.Contains(l, crontabMarker) {
			continue
		}
		kept = append(kept, l)
	}
	kept = append(kept, line)
	table := strings.Join(kept, "\n") + "\n"

	if out, err := r.runner.Run(ctx, []byte(table), "crontab", "-"); err != nil {
		return fmt.Errorf("install crontab: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	out, err := r.runner.Run(ctx, nil, "crontab", "-l")
	if err != nil || !strings.Contains(string(out), crontabMarker) {
		return fmt.Errorf("%w: crontab entry missing", ErrNotVerified)
	}

	r.logger.Info().
		Str("task", TaskName).
		Str("frequency", string(spec.Frequency)).
		Str("time", spec.TimeOfDay).
		Msg("crontab entry registered")
	return nil
}

// crontabLine renders the spec as the single crontab line tidesafe owns.
func (r *Registrar) crontabLine(spec Spec) (string, error) {
	var expr string
	if spec.Frequency == Once {
		// cron has no one-shot syntax; pin the registration date instead.
		hour, minute, err := spec.clock()
		if err != nil {
			return "", err
		}
		now := r.now()
		expr = fmt.Sprintf("%d %d %d %d *", minute, hour, now.Day(), int(now.Month()))
	} else {
		var err error
		expr, err = spec.CronExpr()
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s %s %s", expr, r.exePath, crontabMarker), nil
}
