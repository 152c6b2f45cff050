package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/app"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/gcs"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/money"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = []command{
	{"link-account", "Link a bank account to a user", runLinkAccount},
	{"sync", "Crawl one account, or every account with -all", runSync},
	{"categorize", "Categorize pending transactions", runCategorize},
	{"seed-rules", "Install the default merchant rules", runSeedRules},
	{"insights", "List unread insights for a user", runInsights},
	{"recurring", "List detected recurring bills for a user", runRecurring},
	{"anchors", "List suggested anchors for a user", runAnchors},
	{"snapshot", "Capture today's snapshot for one user, or all users", runSnapshot},
	{"audit", "Show recent classifier calls from the warehouse", runAudit},
	{"warehouse", "Query exported transactions by date range", runWarehouse},
	{"archive-fetch", "Print an archived raw bank page", runArchiveFetch},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("HELM_CONFIG"))
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := execute(ctx, cfg, log, cmd, os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
		os.Exit(1)
	}
}

func execute(ctx context.Context, cfg config.Config, log zerolog.Logger, cmd *command, args []string) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmd.run(ctx, a, args)
}

func printUsage() {
	fmt.Println("Helm CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	for _, c := range commands {
		fmt.Printf("  %-14s %s\n", c.name, c.usage)
	}
	fmt.Println("\nConfiguration is read from HELM_CONFIG, config.yaml and HELM_* variables.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func runLinkAccount(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("link-account", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	externalID := fs.String("external", "", "Banking provider account ID")
	name := fs.String("name", "", "Display name")
	fs.Parse(args)

	if err := errors.Join(requireFlag("user", *userID), requireFlag("external", *externalID)); err != nil {
		return err
	}

	acc, err := a.Store.CreateAccount(ctx, domain.LinkedAccount{
		UserID:            *userID,
		ExternalAccountID: *externalID,
		Name:              *name,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Linked account %s for user %s\n", acc.ID, acc.UserID)
	return nil
}

func runSync(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	accountID := fs.String("account", "", "Linked account ID")
	all := fs.Bool("all", false, "Sync every linked account")
	fs.Parse(args)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.StartWorkers(workerCtx); err != nil {
		return err
	}
	defer func() {
		if err := a.StopWorkers(ctx); err != nil {
			a.Log.Error().Err(err).Msg("Error stopping job queue")
		}
	}()

	if *all {
		n, err := a.Orchestrator.SyncAll(ctx, a.Store)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d new transactions across all accounts\n", n)
		return nil
	}

	if err := requireFlag("account", *accountID); err != nil {
		return err
	}
	acc, err := a.Store.GetAccount(ctx, *accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	res, err := a.Orchestrator.SyncAccount(ctx, acc.ID, acc.ExternalAccountID, acc.UserID)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runCategorize(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	limit := fs.Int("limit", a.Config.Scheduler.SweepBatchSize, "Maximum transactions to process")
	fs.Parse(args)

	n, err := a.Categorizer.ProcessPending(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d pending transactions\n", n)
	return nil
}

func runSeedRules(ctx context.Context, a *app.App, args []string) error {
	n, err := a.SeedRules(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d merchant rules\n", n)
	return nil
}

func runInsights(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	fs.Parse(args)

	if err := requireFlag("user", *userID); err != nil {
		return err
	}
	list, err := a.Insights.UnreadInsights(ctx, *userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No unread insights.")
		return nil
	}
	for _, in := range list {
		fmt.Printf("[%s] %s\n  %s\n", in.Type, in.Title, in.Message)
	}
	return nil
}

func runRecurring(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("recurring", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	days := fs.Int("days", 30, "Window for the upcoming bills total")
	fs.Parse(args)

	if err := requireFlag("user", *userID); err != nil {
		return err
	}
	bills, err := a.Detector.DetectRecurring(ctx, *userID)
	if err != nil {
		return err
	}
	for _, b := range bills {
		fmt.Printf("%-24s %14s  %-8s next %s  (%.0f%%)\n",
			b.Name, money.FormatNaira(b.AmountKobo), b.Frequency, b.NextDueDate.Format("2006-01-02"), b.Confidence*100)
	}

	total, err := a.Detector.UpcomingBillsTotal(ctx, *userID, *days)
	if err != nil {
		return err
	}
	fmt.Printf("\nUpcoming in %d days: %s\n", *days, money.FormatNaira(total))
	return nil
}

func runAnchors(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("anchors", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	fs.Parse(args)

	if err := requireFlag("user", *userID); err != nil {
		return err
	}
	anchors, err := a.Detector.DetectAnchors(ctx, *userID)
	if err != nil {
		return err
	}
	return printJSON(anchors)
}

func runSnapshot(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	userID := fs.String("user", "", "User ID; empty captures every user")
	fs.Parse(args)

	if *userID == "" {
		n, err := a.Snapshots.CaptureAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Captured %d snapshots\n", n)
		return nil
	}
	snap, err := a.Snapshots.CaptureDailySnapshot(ctx, *userID)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func runAudit(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of rows")
	fs.Parse(args)

	if a.Audit == nil {
		return errors.New("warehouse is not configured, set gcp.project_id")
	}
	rows, err := a.Audit.ListRecentModelOutputs(ctx, *limit)
	if err != nil {
		return err
	}

	fmt.Printf("%-20s  %-8s  %6s  %7s  %8s  %s\n", "CREATED", "PROVIDER", "INPUTS", "RESULTS", "MS", "ERROR")
	for _, r := range rows {
		errMsg := ""
		if r.Error.Valid {
			errMsg = r.Error.StringVal
		}
		fmt.Printf("%-20s  %-8s  %6d  %7d  %8d  %s\n",
			r.CreatedTS.Format(time.DateTime), r.Provider, r.InputCount, r.ResultCount, r.DurationMS, errMsg)
	}
	return nil
}

func runWarehouse(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("warehouse", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	from := fs.String("from", "", "Start date (YYYY-MM-DD)")
	to := fs.String("to", "", "End date (YYYY-MM-DD), defaults to today")
	fs.Parse(args)

	if a.Exporter == nil {
		return errors.New("warehouse is not configured, set gcp.project_id")
	}
	if err := errors.Join(requireFlag("user", *userID), requireFlag("from", *from)); err != nil {
		return err
	}

	start, err := time.Parse(time.DateOnly, *from)
	if err != nil {
		return fmt.Errorf("parse -from: %w", err)
	}
	end := time.Now()
	if *to != "" {
		if end, err = time.Parse(time.DateOnly, *to); err != nil {
			return fmt.Errorf("parse -to: %w", err)
		}
	}

	rows, err := a.Exporter.QueryTransactionsByDateRange(ctx, *userID, start, end)
	if err != nil {
		return err
	}
	for _, r := range rows {
		category := "-"
		if r.CategoryName.Valid {
			category = r.CategoryName.StringVal
		}
		fmt.Printf("%s  %-6s  %14s  %-16s  %s\n",
			r.TransactionDate, r.Direction, money.FormatNaira(r.AmountKobo), category, r.RawDescription)
	}
	fmt.Printf("\n%d transactions\n", len(rows))
	return nil
}

func runArchiveFetch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("archive-fetch", flag.ExitOnError)
	uri := fs.String("uri", "", "gs:// URI of the archived page")
	fs.Parse(args)

	if err := requireFlag("uri", *uri); err != nil {
		return err
	}

	archiver := a.Archiver
	if archiver == nil {
		svc, err := gcs.NewGCSStorageService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		bucket, _, err := gcs.ParseURI(*uri)
		if err != nil {
			return err
		}
		archiver = gcs.NewArchiver(svc, bucket, time.Now)
	}

	raw, err := archiver.FetchPage(ctx, *uri)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(raw)
	return err
}
