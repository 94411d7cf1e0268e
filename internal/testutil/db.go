// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/database"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory sqlite database with the full schema.
// The pool is capped at one connection so every query sees the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// DryRunPostgres returns a postgres-dialect handle that never connects.
// Statements are built but not executed, and their SQL is collected in order.
func DryRunPostgres(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=pricing dbname=pricing sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	var statements []string
	capture := func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("testutil:capture_query", capture))
	require.NoError(t, db.Callback().Raw().After("gorm:raw").Register("testutil:capture_raw", capture))
	return db, &statements
}

// FitsDecimalColumn reports whether value can be stored in the decimal(p,s)
// column mapped to field of model, as postgres would enforce it
func FitsDecimalColumn(t *testing.T, db *gorm.DB, model interface{}, field string, value decimal.Decimal) bool {
	t.Helper()

	stmt := &gorm.Statement{DB: db}
	require.NoError(t, stmt.Parse(model))
	f := stmt.Schema.LookUpField(field)
	require.NotNil(t, f, "field %s", field)

	var precision, scale int32
	_, err := fmt.Sscanf(strings.ToLower(f.TagSettings["TYPE"]), "decimal(%d,%d)", &precision, &scale)
	require.NoError(t, err, "field %s is not a decimal(p,s) column", field)

	limit := decimal.New(1, precision-scale)
	return value.Round(scale).Abs().LessThan(limit)
}

// Dec parses a decimal literal and panics on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// OptionSpec describes one priced option with a single item
type OptionSpec struct {
	Type     domain.ServiceType
	Title    string
	Price    string
	Discount string
	Cost     string
}

// CreateTestProposal stores a proposal with one service, option and item per spec
func CreateTestProposal(t *testing.T, db *gorm.DB, pax int, specs ...OptionSpec) *domain.Proposal {
	t.Helper()

	proposal := &domain.Proposal{
		ClientName: "Test Client",
		Pax:        pax,
		Status:     domain.ProposalStatusDraft,
	}
	for i, spec := range specs {
		discount := spec.Discount
		if discount == "" {
			discount = "0"
		}
		proposal.Services = append(proposal.Services, domain.Service{
			Title:        spec.Title,
			Type:         spec.Type,
			DisplayOrder: i,
			Options: []domain.ServiceOption{{
				Name:        spec.Title + " option",
				PricePax:    Dec(spec.Price),
				DiscountPax: Dec(discount),
				CostPax:     Dec(spec.Cost),
				Items: []domain.ProposalItem{{
					Name: spec.Title + " item",
				}},
			}},
		})
	}

	require.NoError(t, db.Create(proposal).Error)
	return proposal
}

// CreateDualVATProposal stores the reference proposal: a logistics service at
// 8/pax (cost 5) and a gastronomy service at 35/pax (cost 22)
func CreateDualVATProposal(t *testing.T, db *gorm.DB, pax int) *domain.Proposal {
	return CreateTestProposal(t, db, pax,
		OptionSpec{Type: domain.ServiceTypeLogistics, Title: "Transport", Price: "8", Cost: "5"},
		OptionSpec{Type: domain.ServiceTypeGastronomy, Title: "Menu", Price: "35", Cost: "22"},
	)
}

// SeedDefaultTiers stores the standard volume discount ladder
func SeedDefaultTiers(t *testing.T, db *gorm.DB) []domain.VolumeDiscountTier {
	t.Helper()

	tiers := []domain.VolumeDiscountTier{
		{MinPax: 50, MaxPax: IntPtr(99), DiscountPercentage: Dec("3"), Description: "50-99 pax", IsActive: true},
		{MinPax: 100, MaxPax: IntPtr(199), DiscountPercentage: Dec("5"), Description: "100-199 pax", IsActive: true},
		{MinPax: 200, MaxPax: IntPtr(499), DiscountPercentage: Dec("8"), Description: "200-499 pax", IsActive: true},
		{MinPax: 500, DiscountPercentage: Dec("10"), Description: "500+ pax", IsActive: true},
	}
	for i := range tiers {
		require.NoError(t, db.Create(&tiers[i]).Error)
	}
	return tiers
}
