package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"org-janitor/core/config"
	"org-janitor/core/logger"
	"org-janitor/core/platform"
	"org-janitor/core/ratelimit"
	"org-janitor/core/reconcile"
	"org-janitor/core/safelist"
	"org-janitor/core/storage"
	"org-janitor/feature/archives"
	"org-janitor/feature/devices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags shared by the purge subcommands
	dryRunPurge bool
	yesConfirm  bool
)

// purgeCmd is the parent command for all purge operations.
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge non-persistent entities from the organization",
	Long: `Purge reconciles the remote organization against the configured
allow-lists and deletes everything not marked persistent. Deletes are
rate-limited client-side and retried on throttling.`,
}

// purgeDevicesCmd purges devices and users not on the allow-list.
var purgeDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Purge devices and users not on the allow-list",
	Long: `Gather the full device inventory (cameras, access controllers, sensors,
gateways, guest hardware, users), diff it against the allow-list, and
delete the remainder.

Examples:
  # Report only (dry-run)
  purge devices --dry-run

  # Purge with interactive confirmation
  purge devices

  # Purge with auto-confirm (non-interactive)
  purge devices --yes`,
	RunE: runPurgeDevices,
}

// purgeArchivesCmd sweeps aged video archives.
var purgeArchivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Sweep video archives past the retention age",
	Long: `List the organization's video exports and delete the ones older than
the configured age limit, skipping allow-listed exports. Optionally
offloads each export to object storage before deleting it.

Examples:
  # Report only (dry-run)
  purge archives --dry-run

  # Sweep with auto-confirm
  purge archives --yes`,
	RunE: runPurgeArchives,
}

func init() {
	purgeCmd.AddCommand(purgeDevicesCmd)
	purgeCmd.AddCommand(purgeArchivesCmd)

	purgeCmd.PersistentFlags().BoolVar(&dryRunPurge, "dry-run", false, "Report the plan without deleting anything")
	purgeCmd.PersistentFlags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(purgeCmd)
}

// setupRun loads config, builds the run-scoped logger, and opens an
// authenticated platform session. The returned cleanup logs out.
func setupRun(ctx context.Context) (*config.Config, *zap.Logger, *platform.Client, func(), error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l, runID := logger.WithRun(l)
	l.Info("starting run", zap.String("run_id", runID))

	client, err := platform.NewClient(cfg.Platform, l)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create platform client: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	cleanup := func() {
		client.Logout(ctx)
		_ = l.Sync()
	}
	return cfg, l, client, cleanup, nil
}

func newPurgeEngine(cfg *config.Config, keys []string, l *zap.Logger) (*reconcile.Engine, error) {
	limiter, err := ratelimit.New(cfg.Limiter)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limiter: %w", err)
	}
	engine, err := reconcile.NewEngine(safelist.Build(keys), limiter, cfg.Purge, l)
	if err != nil {
		return nil, fmt.Errorf("failed to build purge engine: %w", err)
	}
	return engine, nil
}

func runPurgeDevices(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, client, cleanup, err := setupRun(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := devices.NewService(client, l)

	l.Info("gathering inventory")
	inventory, report := svc.Gather(ctx)

	for _, w := range report.Warnings {
		l.Info("gather notice", zap.String("detail", w))
	}
	for typ, detail := range report.Errors {
		l.Warn("gather failed for type", zap.String("type", typ), zap.String("detail", detail))
	}
	if report.Partial() {
		l.Warn("inventory is partial; failed types will not be touched")
	}

	// Devices and users share one allow-list lookup.
	keys := append(cfg.Keep.DeviceKeys(), cfg.Keep.UserKeys()...)
	engine, err := newPurgeEngine(cfg, keys, l)
	if err != nil {
		return err
	}

	plan := engine.Diff(inventory)
	l.Info("purge planned",
		zap.Int("inventory", len(inventory)),
		zap.Int("persistent", len(inventory)-len(plan)),
		zap.Int("to_delete", len(plan)),
	)
	for _, ent := range plan {
		l.Info("planned deletion",
			zap.String("id", ent.ID),
			zap.String("type", ent.Type),
			zap.String("name", ent.Name()),
		)
	}

	if len(plan) == 0 {
		l.Info("nothing to delete")
		return nil
	}
	if dryRunPurge {
		l.Info("dry-run mode: no changes were made")
		return nil
	}
	if !confirmDestructiveAction(len(plan)) {
		l.Warn("operation cancelled by user, no changes were made")
		return nil
	}

	outcomes := engine.Run(ctx, inventory, svc.Deleter())
	printSummary(l, reconcile.Summarize(outcomes), outcomes)
	return nil
}

func runPurgeArchives(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, client, cleanup, err := setupRun(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := newPurgeEngine(cfg, cfg.Keep.ArchiveKeys(), l)
	if err != nil {
		return err
	}

	var store storage.Client
	if cfg.Archive.OffloadEnabled {
		store, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to offload storage: %w", err)
		}
	}

	opts := archives.Options{
		AgeLimitDays:      cfg.Archive.AgeLimitDays,
		AttributionWindow: time.Duration(cfg.Archive.AttributionWindowMinutes) * time.Minute,
		OffloadEnabled:    cfg.Archive.OffloadEnabled,
		OffloadBucket:     cfg.Storage.Bucket,
	}

	if dryRunPurge {
		return planArchiveSweep(ctx, client, cfg, l)
	}

	sweeper, err := archives.NewSweeper(client, store, engine, opts, l)
	if err != nil {
		return err
	}

	if !yesConfirm {
		// The sweep lists and deletes in one pass, so the prompt comes
		// before we know the exact count. Dry-run first for a preview.
		if !confirmDestructiveAction(0) {
			l.Warn("operation cancelled by user, no changes were made")
			return nil
		}
	}

	report, err := sweeper.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(l, report.Summary, report.Outcomes)
	l.Info("retention", zap.Int("retained", report.Retained))
	for id, user := range report.Attribution {
		l.Info("deletion attributed",
			zap.String("export_id", id),
			zap.String("user", user),
		)
	}
	return nil
}

// planArchiveSweep previews the sweep without touching anything.
func planArchiveSweep(ctx context.Context, client *platform.Client, cfg *config.Config, l *zap.Logger) error {
	records, err := client.ListArchives(ctx)
	if err != nil {
		return fmt.Errorf("failed to list archives: %w", err)
	}

	safe := safelist.Build(cfg.Keep.ArchiveKeys())
	now := time.Now()

	condemned := 0
	for _, rec := range records {
		if !archives.ShouldDelete(rec, safe, cfg.Archive.AgeLimitDays, now, time.Local) {
			continue
		}
		condemned++
		l.Info("planned deletion",
			zap.String("export_id", rec.ExportID),
			zap.Time("exported_at", rec.ExportedAt),
			zap.String("label", rec.Label),
		)
	}

	l.Info("sweep planned",
		zap.Int("archives", len(records)),
		zap.Int("to_delete", condemned),
		zap.Int("retained", len(records)-condemned),
	)
	l.Info("dry-run mode: no changes were made")
	return nil
}

// printSummary prints the per-outcome detail and the aggregate counts.
func printSummary(l *zap.Logger, s reconcile.Summary, outcomes []reconcile.Outcome) {
	for _, o := range outcomes {
		fields := []zap.Field{
			zap.String("id", o.EntityID),
			zap.String("type", o.Type),
			zap.String("status", string(o.Status)),
		}
		if o.Retries > 0 {
			fields = append(fields, zap.Int("retries", o.Retries))
		}
		if o.Detail != "" {
			fields = append(fields, zap.String("detail", o.Detail))
		}
		l.Info("outcome", fields...)
	}

	l.Info("run summary",
		zap.Int("deleted", s.Deleted),
		zap.Int("skipped", s.Skipped),
		zap.Int("throttled_exhausted", s.Throttled),
		zap.Int("failed", s.Failed),
		zap.Int("not_found", s.NotFound),
	)
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(count int) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	if count > 0 {
		fmt.Printf("\n⚠️  About to delete %d entities. Type 'yes' to confirm: ", count)
	} else {
		fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	}
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
