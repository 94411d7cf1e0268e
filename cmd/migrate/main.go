package main

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/pricing"
)

type command struct {
	run  func(db *sql.DB, dir string, args []string) error
	done string
}

// verify runs after up so a migration that seeds an overlapping tier ladder
// fails here instead of on the first recalculation
var commands = map[string]command{
	"up": {run: func(db *sql.DB, dir string, _ []string) error {
		if err := goose.Up(db, dir); err != nil {
			return err
		}
		return verifyTiers(db)
	}, done: "Migrations applied successfully"},
	"down": {run: func(db *sql.DB, dir string, _ []string) error {
		return goose.Down(db, dir)
	}, done: "Migration rolled back successfully"},
	"reset": {run: func(db *sql.DB, dir string, _ []string) error {
		return goose.Reset(db, dir)
	}, done: "All migrations rolled back"},
	"status": {run: func(db *sql.DB, dir string, _ []string) error {
		return goose.Status(db, dir)
	}},
	"version": {run: func(db *sql.DB, dir string, _ []string) error {
		return goose.Version(db, dir)
	}},
	"verify": {run: func(db *sql.DB, _ string, _ []string) error {
		return verifyTiers(db)
	}, done: "Volume discount tiers are consistent"},
	"create": {run: func(db *sql.DB, dir string, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		return goose.Create(db, dir, args[0], "sql")
	}, done: "Migration created"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: migrate [%s]", strings.Join(commandNames(), "|"))
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "./migrations"
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := cmd.run(db, migrationsDir, os.Args[2:]); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if cmd.done != "" {
		fmt.Println(cmd.done)
	}
	return nil
}

// verifyTiers loads every volume discount tier and applies the same checks
// the pricing engine runs when it builds its rate table
func verifyTiers(db *sql.DB) error {
	rows, err := db.Query(`SELECT min_pax, max_pax, discount_percentage, is_active FROM volume_discount_tiers`)
	if err != nil {
		return fmt.Errorf("failed to read volume discount tiers: %w", err)
	}
	defer rows.Close()

	var tiers []pricing.Tier
	for rows.Next() {
		var (
			minPax int
			maxPax sql.NullInt64
			pct    decimal.Decimal
			active bool
		)
		if err := rows.Scan(&minPax, &maxPax, &pct, &active); err != nil {
			return fmt.Errorf("failed to scan volume discount tier: %w", err)
		}
		percentage, err := pricing.NewPercentage(pct)
		if err != nil {
			return fmt.Errorf("tier starting at %d pax: %w", minPax, err)
		}
		tier := pricing.Tier{MinPax: minPax, DiscountPercentage: percentage, Active: active}
		if maxPax.Valid {
			upper := int(maxPax.Int64)
			tier.MaxPax = &upper
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return pricing.ValidateTiers(tiers)
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
