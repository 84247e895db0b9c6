package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"climate-server/internal/config"
	"climate-server/internal/db"
	"climate-server/internal/logging"
	"climate-server/internal/migrate"
	"climate-server/internal/seed"
)

const appName = "climate-tools"

var version = "dev"

const usage = `usage: %s <command> [flags]
  migrate          apply pending schema migrations
  import [-force]  apply migrations, then load the CSV dataset from DATA_DIR
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.DBDriver == config.DriverMemory {
		fmt.Fprintln(os.Stderr, "DB_DRIVER=memory has no database to maintain")
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, cmd string, args []string) error {
	var force bool
	switch cmd {
	case "migrate":
	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		fs.BoolVar(&force, "force", false, "replace existing rows")
		if err := fs.Parse(args); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	n, err := migrate.Run(ctx, conn, cfg.DBDriver)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", n)
	if cmd == "migrate" {
		return nil
	}

	ds, err := seed.LoadDir(cfg.DataDir)
	if err != nil {
		return err
	}
	imported, err := seed.Import(ctx, conn, cfg.DBDriver, ds, force)
	if err != nil {
		return err
	}
	if !imported {
		logger.Info("dataset already present; rerun with -force to replace it")
	}
	return nil
}
