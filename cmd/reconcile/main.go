// reconcile runs one batch pass against the time-clock system and exits.
// It is the same work the API's scheduler performs, for use from an
// external cron or by hand after a source outage.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/source"
	reconciliationService "github.com/cmlabs-hris/hris-attendance-go/internal/service/reconciliation"
)

// exitConnectivity distinguishes an unreachable store from other failures for wrapping scripts.
const exitConnectivity = 2

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if reconciliation.IsConnectivity(err) {
			os.Exit(exitConnectivity)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		job        string
		days       int
		cutoffFlag string
		policyFile string
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	flagSet.StringVar(&job, "job", "sync", "batch to run: sync (recent raw logs) or full (raw + legacy reconciliation)")
	flagSet.IntVar(&days, "days", 0, "sync window in days (default: RECONCILE_SYNC_WINDOW_DAYS)")
	flagSet.StringVar(&cutoffFlag, "cutoff", "", "full reconciliation cutoff, YYYY-MM-DD (default: today minus RECONCILE_LOOKBACK_DAYS)")
	flagSet.StringVar(&policyFile, "policy", "", "reconciliation policy YAML (default: RECONCILE_POLICY_FILE)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if policyFile == "" {
		policyFile = cfg.Reconciliation.PolicyFile
	}
	policy, err := config.LoadPolicy(policyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.WithPoolSize(5, 1))
	if err != nil {
		return &reconciliation.ConnectivityError{Source: "canonical", Err: err}
	}
	defer db.Close()

	sourceDB, err := database.NewPostgreSQLDB(ctx, cfg.SourceDatabase.URL, database.ReadOnly(), database.WithPoolSize(2, 1))
	if err != nil {
		return &reconciliation.ConnectivityError{Source: "time_clock", Err: err}
	}
	defer sourceDB.Close()

	location := cfg.Location()
	punchRepo := postgresql.NewPunchRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	sourceRepo := source.NewTimeClockRepository(sourceDB)

	runner := reconciliationService.NewRunner(
		reconciliationService.NewIngestor(sourceRepo, punchRepo, nil),
		reconciliationService.NewEngine(sourceRepo, punchRepo, attendanceRepo, policy, nil),
		reconciliationService.NewActivator(employeeRepo),
		employeeRepo,
		postgresql.NewReferenceRepository(db),
		nil,
		reconciliationService.WithLocation(location),
		reconciliationService.WithErrorSampleSize(cfg.Reconciliation.ErrorSampleSize),
	)

	var summary reconciliation.RunSummary
	switch job {
	case "sync":
		req := reconciliation.SyncRequest{Days: days}
		if err := req.Validate(cfg.Reconciliation.SyncWindowDays); err != nil {
			return err
		}
		summary, err = runner.SyncRecent(ctx, req.Days)
	case "full":
		req := reconciliation.FullRequest{Cutoff: cutoffFlag}
		cutoff, perr := req.ParseCutoff(time.Now().In(location), cfg.Reconciliation.LookbackDays)
		if perr != nil {
			return perr
		}
		summary, err = runner.FullReconcile(ctx, cutoff)
	default:
		return fmt.Errorf("unknown job %q: want sync or full", job)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
