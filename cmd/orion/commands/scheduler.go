package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/scheduler"
	"github.com/wonny/orion/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run screening on a cron schedule",
	Long: `Start the scheduler daemon or manage its jobs.

Subcommands:
  start   - start the scheduler (blocks until Ctrl+C)
  list    - list registered jobs and their next run
  run     - run one job now

Example:
  orion scheduler start
  orion scheduler list
  orion scheduler run screening`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and register every job.

Registered jobs:
- screening: SCHEDULE (default weekdays 09:45), alerts when SCHEDULE_NOTIFY is true

The scheduler stops on Ctrl+C; a running job is cancelled.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler wires every job; cleanup releases the repository and clients
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *app, func(), error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := a.provider()
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}

	repo, err := a.repository(ctx)
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := repo.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close repository")
		}
		a.Close()
	}

	deps := jobs.ScreeningDeps{
		Provider: p,
		Symbols:  a.resolver(),
		Repo:     repo,
		Recorder: a.metrics,
	}
	if a.cfg.Scheduler.Notify {
		svc, err := a.notifier()
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		// a nil *Service must not become a non-nil interface
		if svc != nil {
			deps.Notifier = svc
		} else {
			a.log.Warn("SCHEDULE_NOTIFY is set but no notification channel is configured")
		}
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewScreeningJob(a.cfg, deps, a.log)); err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return sched, a, cleanup, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Orion Scheduler ===")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	sched, a, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	a.serveMetrics(ctx)
	sched.Start()

	fmt.Fprintln(out, "\n✅ Scheduler started successfully")
	printJobs(out, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, _, cleanup, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	printJobs(cmd.OutOrStdout(), sched)
	return nil
}

func printJobs(out io.Writer, sched *scheduler.Scheduler) {
	fmt.Fprintln(out, "Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		next, err := sched.NextRun(name)
		if err != nil || next.IsZero() {
			fmt.Fprintf(out, "  - %s\n", name)
			continue
		}
		fmt.Fprintf(out, "  - %s (next run %s)\n", name, next.Local().Format(timestampLayout))
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	out := cmd.OutOrStdout()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	sched, _, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Fprintf(out, "Running job: %s\n", jobName)
	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	printKeyValue(out, "Attempts", result.Attempts, 10)
	printKeyValue(out, "Duration", result.Duration.Round(time.Millisecond), 10)
	if !result.Success {
		printKeyValue(out, "Error", result.Error, 10)
		return fmt.Errorf("job %s failed", jobName)
	}
	fmt.Fprintf(out, "\n✅ Job %s completed\n", jobName)
	return nil
}
