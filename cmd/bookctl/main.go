// Command bookctl runs one-off maintenance against the books: migrations,
// integrity checks, printed statements and queue management.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/jobs"
	"github.com/odyssey-erp/odyssey-books/migrations"
)

const usage = `usage: bookctl <command> [flags]

commands:
  migrate                         apply pending database migrations
  integrity                       replay balances and stock levels; exit 1 on drift
  statement -account ID [-start YYYY-MM-DD] [-end YYYY-MM-DD]
  jobs trigger integrity|cleanup  enqueue a background job
  jobs stats                      print queue depth
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, "load config:", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch args[0] {
	case "migrate":
		if cfg.StorageBackend != app.BackendPostgres {
			fmt.Fprintln(stderr, "migrate requires STORAGE_BACKEND=postgres")
			return 1
		}
		if err := db.Migrate(cfg.PGDSN, migrations.FS, logger); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, "migrations applied")
		return 0
	case "integrity":
		return runIntegrity(ctx, cfg, logger, stdout, stderr)
	case "statement":
		return runStatement(ctx, cfg, logger, args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, cfg, args[1:], stdout, stderr)
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
}

func runIntegrity(ctx context.Context, cfg *app.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	books, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer books.Close()
	report, err := books.Engine.VerifyIntegrity(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, d := range report.Accounts {
		fmt.Fprintf(stdout, "account %d: stored %s, recomputed %s\n", d.AccountID, d.Stored, d.Recomputed)
	}
	for _, d := range report.Levels {
		fmt.Fprintf(stdout, "level product=%d warehouse=%d: stored %s, expected %s\n", d.Key.ProductID, d.Key.WarehouseID, d.Stored, d.Expected)
	}
	if !report.Clean() {
		return 1
	}
	fmt.Fprintln(stdout, "books are consistent")
	return 0
}

func runStatement(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	fs.SetOutput(stderr)
	account := fs.Int64("account", 0, "account id")
	startFlag := fs.String("start", "", "first day, inclusive")
	endFlag := fs.String("end", "", "last day, inclusive")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *account <= 0 {
		fmt.Fprintln(stderr, "-account is required")
		return 2
	}
	start, err := parseDay(*startFlag)
	if err != nil {
		fmt.Fprintln(stderr, "-start:", err)
		return 2
	}
	end, err := parseDay(*endFlag)
	if err != nil {
		fmt.Fprintln(stderr, "-end:", err)
		return 2
	}

	books, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer books.Close()
	st, err := books.Statements.Statement(ctx, *account, start, end)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprint(stdout, books.Formatter.Text(st))
	return 0
}

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	opts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cli := newJobsCLI(jobs.RedisOpt(opts), cfg.WorkerQueue)
	defer func() { _ = cli.Close() }()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprint(stderr, usage)
			return 2
		}
		info, err := cli.trigger(ctx, args[1], cfg.KeyRetention)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := cli.stats()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
		return 0
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
}

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(httpx.DateLayout, value)
}
