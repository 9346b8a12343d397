package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/identity"
	"fintrack/internal/log"
	"fintrack/internal/present"
	"fintrack/internal/seed"
	"fintrack/internal/session"
)

func main() {
	owner := flag.String("owner", "", "owner id to seed")
	email := flag.String("email", "", "seed the owner that signs in with this email")
	n := flag.Int("n", 50, "number of transactions")
	months := flag.Int("months", 3, "spread dates over this many months, ending today")
	seedValue := flag.Int64("seed", 0, "random seed; 0 picks one")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentSeed)

	if (*owner == "") == (*email == "") || *n < 1 {
		fmt.Fprintln(os.Stderr, "need exactly one of -owner or -email, and -n >= 1")
		flag.Usage()
		os.Exit(2)
	}
	if *email != "" {
		id, err := identity.OwnerID(*email)
		if err != nil {
			logger.Error("Invalid email", log.FieldError, err.Error())
			os.Exit(2)
		}
		*owner = id
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	sess := session.New(*owner, be.Store, session.Options{Logger: logger})
	defer sess.Close()

	drafts := seed.NewGenerator(*seedValue).Transactions(*n, *months, time.Now())
	added, errs := sess.Import(ctx, drafts)
	if len(errs) > 0 {
		logger.Warn("Some transactions were not stored",
			log.FieldCount, len(errs), log.FieldError, errors.Join(errs...).Error())
	}
	logger.Info("Seed complete", log.FieldOwnerID, *owner, log.FieldCount, len(added), "backend", cfg.DataBackend)

	if err := sess.Refresh(ctx); err != nil {
		logger.Error("Failed to reload transactions", log.FieldError, err.Error())
		os.Exit(1)
	}
	for _, row := range present.SummaryTable(sess.Summary()) {
		if row.Count > 0 {
			fmt.Printf("%-15s %12s  (%d)\n", row.Label, row.Value, row.Count)
		} else {
			fmt.Printf("%-15s %12s\n", row.Label, row.Value)
		}
	}
}
