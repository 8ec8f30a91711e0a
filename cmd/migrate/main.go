package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"gearguard.io/internal/config"
	"gearguard.io/internal/migrate"
	"gearguard.io/internal/obs"
	"gearguard.io/internal/seed"
	"gearguard.io/internal/store/pg"
)

func main() {
	_ = godotenv.Load()
	log := obs.Logger()

	cfg, _, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	dsn := flag.String("dsn", cfg.Database.URL, "PostgreSQL DSN (defaults to DATABASE_URL)")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|seed|status]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := pg.Open(*dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer st.Close()

	mgr := migrate.NewManager(st.DB())

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		if err = mgr.Up(ctx); err == nil {
			err = seed.Demo(ctx, st, time.Now())
		}
	case "status":
		var states []migrate.State
		states, err = mgr.Status(ctx)
		for _, s := range states {
			if s.Applied {
				fmt.Printf("applied  %s  %s\n", s.Name, s.AppliedAt.UTC().Format(time.RFC3339))
			} else {
				fmt.Printf("pending  %s\n", s.Name)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.WithError(err).Fatalf("migrate %s", flag.Arg(0))
	}
}
