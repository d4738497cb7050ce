// Package main is the entrypoint for the tidesafe CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tidesafe/tidesafe/internal/backup"
	"github.com/tidesafe/tidesafe/internal/config"
	"github.com/tidesafe/tidesafe/internal/excludes"
	"github.com/tidesafe/tidesafe/internal/history"
	"github.com/tidesafe/tidesafe/internal/logging"
	"github.com/tidesafe/tidesafe/internal/notify"
	"github.com/tidesafe/tidesafe/internal/schedule"
	"github.com/tidesafe/tidesafe/internal/storage"
	"github.com/tidesafe/tidesafe/internal/sysinfo"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tidesafe",
		Short: "tidesafe - your folders, offsite",
		Long: `tidesafe backs up a local directory tree to an S3-compatible bucket
(Backblaze B2, AWS S3, MinIO, Wasabi), once or on a recurring schedule
registered with the host OS.

The first run collects the configuration interactively; later runs reuse
it. Running tidesafe with no arguments performs a backup.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), history.TriggerManual)
		},
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigureCmd(),
		newBackupCmd(),
		newScheduleCmd(),
		newHistoryCmd(),
		newStatusCmd(),
		newStartCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tidesafe %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactively collect and save the backup configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Run one backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), history.TriggerManual)
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Register the recurring OS task from the saved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}

			spec, err := schedule.Parse(cfg.ScheduleType, cfg.ScheduleTime, cfg.ScheduleDays, cfg.ScheduleDates)
			if err != nil {
				return fmt.Errorf("invalid schedule configuration: %w", err)
			}
			if spec.Frequency == schedule.None {
				fmt.Println("No schedule configured; run 'tidesafe configure' to set one.")
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
			if err := schedule.NewRegistrar(exe, logger).Register(cmd.Context(), spec); err != nil {
				return fmt.Errorf("register task: %w", err)
			}

			if next, err := spec.Next(time.Now()); err == nil {
				fmt.Printf("Task %q registered; next run %s\n", schedule.TaskName, next.Format("2006-01-02 15:04"))
			} else {
				fmt.Printf("Task %q registered\n", schedule.TaskName)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.DefaultConfigDir()
			if err != nil {
				return err
			}

			store, err := history.Open(dir, zerolog.Nop())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tDURATION\tUPLOADED\tSKIPPED\tFAILED\tTRIGGER")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond),
					run.Uploaded, run.Skipped, run.Failed, run.Trigger)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configuration, last run and disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return err
			}
			if !cfg.IsConfigured() {
				fmt.Println("Not configured; run 'tidesafe configure' first.")
				return nil
			}

			fmt.Printf("Bucket:   %s\n", cfg.Bucket)
			if cfg.Endpoint != "" {
				fmt.Printf("Endpoint: %s\n", cfg.Endpoint)
			}
			fmt.Printf("Root:     %s\n", cfg.Root)

			spec, err := schedule.Parse(cfg.ScheduleType, cfg.ScheduleTime, cfg.ScheduleDays, cfg.ScheduleDates)
			if err != nil {
				fmt.Printf("Schedule: invalid (%v)\n", err)
			} else if spec.Frequency == schedule.None {
				fmt.Println("Schedule: none")
			} else {
				fmt.Printf("Schedule: %s at %s\n", spec.Frequency, spec.TimeOfDay)
				if next, err := spec.Next(time.Now()); err == nil {
					fmt.Printf("Next run: %s\n", next.Format("2006-01-02 15:04"))
				}
			}

			dir, err := config.DefaultConfigDir()
			if err != nil {
				return err
			}
			if store, err := history.Open(dir, zerolog.Nop()); err == nil {
				defer store.Close()
				if last, err := store.LastRun(cmd.Context()); err == nil && last != nil {
					fmt.Printf("Last run: %s, %s (%d uploaded, %d skipped, %d failed)\n",
						last.StartedAt.Local().Format("2006-01-02 15:04:05"),
						last.Trigger, last.Uploaded, last.Skipped, last.Failed)
				}
			}

			if usage, err := sysinfo.Usage(cfg.Root); err == nil {
				fmt.Println(usage.String())
			}
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run in the foreground, backing up on the configured schedule",
		Long: `Start runs tidesafe as a foreground process and performs a backup each
time the configured schedule fires, without registering an OS task. Useful
under a service manager or inside a container.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart()
		},
	}
}

// runBackup executes the full pipeline: connect, upload, record history,
// notify, register the schedule.
func runBackup(ctx context.Context, trigger string) error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	if !cfg.IsConfigured() {
		fmt.Println("No configuration found; starting first-run setup.")
		if err := runConfigure(); err != nil {
			return err
		}
		if cfg, err = config.LoadDefault(); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Fatal precondition, checked before any network call.
	if info, err := os.Stat(cfg.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("backup root %q does not exist or is not a directory", cfg.Root)
	}

	dir, err := config.DefaultConfigDir()
	if err != nil {
		return err
	}

	logger, logPath, closeLog, err := logging.NewRunLogger(config.LogDir(dir))
	if err != nil {
		return err
	}
	defer closeLog()

	excl, err := excludes.LoadFile(config.ExcludeFilePath(dir))
	if err != nil {
		return err
	}

	store, err := storage.Connect(ctx, storage.Options{
		Bucket:   cfg.Bucket,
		Endpoint: cfg.Endpoint,
		Region:   cfg.Region,
		KeyID:    cfg.KeyID,
		Secret:   cfg.AppKey,
	}, logger)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAuthFailed):
			return fmt.Errorf("authentication failed: check key_id and app_key (%w)", err)
		case errors.Is(err, storage.ErrBucketNotFound):
			return fmt.Errorf("bucket %q could not be resolved (%w)", cfg.Bucket, err)
		default:
			return err
		}
	}

	orch := backup.NewOrchestrator(store, excl, cfg.Root, logger)
	sum, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Int("uploaded", sum.Uploaded).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Dur("duration", sum.Duration()).
		Msg("run finished")

	// Everything from here on is best-effort: the upload outcome stands
	// regardless of history, notification or scheduling problems.
	prev := recordHistory(ctx, dir, sum, trigger, logger)

	notifier := notify.New(cfg.WebhookURL, logger)
	if prev != nil {
		notifier.Delta = notify.FormatDelta(sum, prev.Uploaded, prev.Failed)
	}
	if usage, err := sysinfo.Usage(cfg.Root); err == nil {
		notifier.Footer = usage.String()
	}
	notifier.Send(ctx, sum, logPath)

	registerSchedule(ctx, cfg, logger)

	fmt.Printf("Backup complete: %d uploaded, %d skipped, %d failed in %.1fs\n",
		sum.Uploaded, sum.Skipped, sum.Failed, sum.Duration().Seconds())
	return nil
}

// recordHistory stores the run outcome and returns the run that preceded
// it, so the notification can compare against it. Failures are logged only.
func recordHistory(ctx context.Context, configDir string, sum backup.Summary, trigger string, logger zerolog.Logger) *history.Run {
	store, err := history.Open(configDir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("history store unavailable")
		return nil
	}
	defer store.Close()

	prev, err := store.LastRun(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read previous run")
	}

	if err := store.RecordRun(ctx, history.NewRun(sum, trigger)); err != nil {
		logger.Warn().Err(err).Msg("failed to record run history")
	}
	return prev
}

// registerSchedule applies the configured recurrence after the run. A
// registration failure never rolls back the completed upload; it is
// surfaced as a distinct "not scheduled" condition.
func registerSchedule(ctx context.Context, cfg *config.Config, logger zerolog.Logger) {
	spec, err := schedule.Parse(cfg.ScheduleType, cfg.ScheduleTime, cfg.ScheduleDays, cfg.ScheduleDates)
	if err != nil {
		logger.Warn().Err(err).Msg("backup completed but schedule configuration is invalid; task not scheduled")
		return
	}
	if spec.Frequency == schedule.None {
		return
	}

	exe, err := os.Executable()
	if err != nil {
		logger.Warn().Err(err).Msg("backup completed but executable path unknown; task not scheduled")
		return
	}

	if err := schedule.NewRegistrar(exe, logger).Register(ctx, spec); err != nil {
		logger.Warn().Err(err).Msg("backup completed but task was not scheduled")
		fmt.Fprintln(os.Stderr, "Warning: backup completed but the recurring task could not be registered.")
	}
}

// runStart keeps the process in the foreground and fires the pipeline on
// the configured recurrence.
func runStart() error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	if !cfg.IsConfigured() {
		return errors.New("not configured; run 'tidesafe configure' first")
	}

	spec, err := schedule.Parse(cfg.ScheduleType, cfg.ScheduleTime, cfg.ScheduleDays, cfg.ScheduleDates)
	if err != nil {
		return fmt.Errorf("invalid schedule configuration: %w", err)
	}

	expr, err := spec.CronExpr()
	if err != nil {
		if errors.Is(err, schedule.ErrNotRecurring) {
			return errors.New("start requires a recurring schedule (DAILY, WEEKLY or MONTHLY)")
		}
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

	c := cron.New()
	if _, err := c.AddFunc(expr, func() {
		if err := runBackup(context.Background(), history.TriggerScheduled); err != nil {
			logger.Error().Err(err).Msg("scheduled backup failed")
		}
	}); err != nil {
		return fmt.Errorf("install cron entry: %w", err)
	}

	c.Start()
	if next, err := spec.Next(time.Now()); err == nil {
		fmt.Printf("tidesafe running; next backup %s (Ctrl-C to stop)\n", next.Format("2006-01-02 15:04"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	<-c.Stop().Done()
	return nil
}

// runConfigure collects all configuration interactively and persists it.
func runConfigure() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== tidesafe configuration ===")
	cfg := &config.Config{}
	cfg.Bucket = promptRequired(reader, "Bucket name")
	cfg.Endpoint = prompt(reader, "S3 endpoint (blank for AWS S3, e.g. s3.us-west-004.backblazeb2.com)")
	cfg.Region = prompt(reader, "Region (blank for default)")
	cfg.KeyID = promptRequired(reader, "Application key ID")
	cfg.AppKey = promptRequired(reader, "Application key")
	cfg.Root = promptRequired(reader, "Full path of the directory to back up")
	cfg.Versioning = promptYesNo(reader, "Let the bucket manage file versions?", true)

	cfg.ScheduleType = strings.ToUpper(prompt(reader, "Schedule (DAILY, WEEKLY, MONTHLY, ONCE or blank for none)"))
	if cfg.ScheduleType != "" && cfg.ScheduleType != string(schedule.None) {
		cfg.ScheduleTime = promptRequired(reader, "Backup time (HH:MM, 24h)")
		switch cfg.ScheduleType {
		case string(schedule.Weekly):
			cfg.ScheduleDays = promptRequired(reader, "Weekdays (comma-separated, e.g. MON,FRI)")
		case string(schedule.Monthly):
			cfg.ScheduleDates = promptRequired(reader, "Days of month (comma-separated, e.g. 1,15)")
		}
	}
	if _, err := schedule.Parse(cfg.ScheduleType, cfg.ScheduleTime, cfg.ScheduleDays, cfg.ScheduleDates); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	cfg.WebhookURL = prompt(reader, "Notification webhook URL (optional)")

	fmt.Println("\nSuggested exclusion groups:")
	for _, sg := range excludes.Suggestions {
		fmt.Printf("  %-16s %s (%s)\n", sg.Name, sg.Description, strings.Join(sg.Extensions, " "))
	}
	raw := prompt(reader, "Exclude file extensions (comma-separated, e.g. .tmp,.log) or blank")
	excl := excludes.New(strings.Split(raw, ",")...)

	dir, err := config.DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := excl.SaveFile(config.ExcludeFilePath(dir)); err != nil {
		return err
	}
	if err := cfg.SaveDefault(); err != nil {
		return err
	}

	path, _ := config.DefaultConfigPath()
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptRequired(reader *bufio.Reader, label string) string {
	for {
		if v := prompt(reader, label); v != "" {
			return v
		}
		fmt.Println("A value is required.")
	}
}

func promptYesNo(reader *bufio.Reader, label string, def bool) bool {
	suffix := "[Y/n]"
	if !def {
		suffix = "[y/N]"
	}
	switch strings.ToLower(prompt(reader, label+" "+suffix)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}
