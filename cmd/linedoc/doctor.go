package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"linedoc/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the configuration",
		Long: `Checks the LINE credentials, the download directory, the journal
database, the listen port and the Document AI settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("linedoc doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0
			pass := func(check, detail string) { printPass(check, detail); passed++ }
			warn := func(check, detail string) { printWarn(check, detail); warned++ }
			fail := func(check, detail string) { printFail(check, detail); failed++ }

			if f := source.EnvFile(); f != "" {
				pass("Env file", f)
			} else {
				warn("Env file", "none found; using process environment only")
			}

			cfg := config.LoadWebhook(source)
			if err := cfg.Validate(); err != nil {
				fail("Webhook config", err.Error())
			} else {
				pass("Webhook config", "valid")
			}

			if cfg.ChannelAccessToken == "" {
				fail("Access token", "LINE_CHANNEL_ACCESS_TOKEN not set")
			} else {
				pass("Access token", config.MaskString(cfg.ChannelAccessToken))
			}
			if cfg.ChannelSecret == "" {
				warn("Channel secret", "not set; signature verification unavailable")
			} else {
				pass("Channel secret", "set")
			}
			if len(cfg.Targets) == 0 {
				warn("Push targets", "none configured")
			} else {
				pass("Push targets", fmt.Sprintf("%d configured", len(cfg.Targets)))
			}

			if err := checkWritableDir(cfg.DownloadDir); err != nil {
				fail("Download dir", err.Error())
			} else {
				pass("Download dir", cfg.DownloadDir)
			}

			if cfg.JournalPath == "" {
				warn("Journal", "disabled (JOURNAL_PATH not set)")
			} else if err := checkDatabase(cfg.JournalPath); err != nil {
				fail("Journal", err.Error())
			} else {
				pass("Journal", cfg.JournalPath)
			}

			if err := checkPort(cfg.Port); err != nil {
				warn("Webhook port", fmt.Sprintf("port %d may be in use: %v", cfg.Port, err))
			} else {
				pass("Webhook port", fmt.Sprintf(":%d available", cfg.Port))
			}

			if pcfg, err := config.LoadProcessor(source); err != nil {
				var missing *config.MissingKeyError
				if errors.As(err, &missing) {
					warn("Document AI", fmt.Sprintf("pipeline disabled, missing %v", missing.Keys))
				} else {
					fail("Document AI", err.Error())
				}
			} else {
				pass("Document AI", pcfg.ProcessorName())
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running linedoc.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned == 0 {
				fmt.Printf("\nAll checks passed!\n")
			}
			return nil
		},
	}
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create: %w", err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-16s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-16s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-16s %s\n", check, detail)
}
