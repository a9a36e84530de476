package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Migration is one versioned schema change.
type Migration struct {
	Name    string
	Version string
	Up      func(ctx context.Context, db bun.IDB) error
}

// migrationRecord tracks applied migrations.
type migrationRecord struct {
	bun.BaseModel `bun:"table:escrow_migrations,alias:em"`

	Version   string    `bun:"version,pk"`
	Name      string    `bun:"name,notnull"`
	AppliedAt time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

// Migrations is the ordered migration group for the Escrow SQL schema.
var Migrations = []Migration{
	{
		Name:    "create_escrow_protocol",
		Version: "20250101000001",
		Up:      createTable((*stateRecord)(nil)),
	},
	{
		Name:    "create_escrow_providers",
		Version: "20250101000002",
		Up:      createTable((*providerRecord)(nil)),
	},
	{
		Name:    "create_escrow_plans",
		Version: "20250101000003",
		Up: func(ctx context.Context, db bun.IDB) error {
			if err := createTable((*planRecord)(nil))(ctx, db); err != nil {
				return err
			}
			return createIndex(ctx, db, (*planRecord)(nil), "idx_escrow_plans_provider", "provider")
		},
	},
	{
		Name:    "create_escrow_subscriptions",
		Version: "20250101000004",
		Up: func(ctx context.Context, db bun.IDB) error {
			if err := createTable((*subscriptionRecord)(nil))(ctx, db); err != nil {
				return err
			}
			if err := createIndex(ctx, db, (*subscriptionRecord)(nil), "idx_escrow_subscriptions_subscriber", "subscriber"); err != nil {
				return err
			}
			if err := createIndex(ctx, db, (*subscriptionRecord)(nil), "idx_escrow_subscriptions_plan", "plan_id"); err != nil {
				return err
			}
			return createIndex(ctx, db, (*subscriptionRecord)(nil), "idx_escrow_subscriptions_active", "active", "id")
		},
	},
	{
		Name:    "create_escrow_balances",
		Version: "20250101000005",
		Up:      createTable((*balanceRecord)(nil)),
	},
	{
		Name:    "create_escrow_payments",
		Version: "20250101000006",
		Up: func(ctx context.Context, db bun.IDB) error {
			if err := createTable((*paymentRecord)(nil))(ctx, db); err != nil {
				return err
			}
			if err := createIndex(ctx, db, (*paymentRecord)(nil), "idx_escrow_payments_subscription", "subscription_id"); err != nil {
				return err
			}
			if err := createIndex(ctx, db, (*paymentRecord)(nil), "idx_escrow_payments_from", "from_address"); err != nil {
				return err
			}
			return createIndex(ctx, db, (*paymentRecord)(nil), "idx_escrow_payments_to", "to_address")
		},
	},
	{
		Name:    "create_escrow_journal",
		Version: "20250101000007",
		Up: func(ctx context.Context, db bun.IDB) error {
			if err := createTable((*journalRecord)(nil))(ctx, db); err != nil {
				return err
			}
			return createIndex(ctx, db, (*journalRecord)(nil), "idx_escrow_journal_name", "name", "seq")
		},
	},
	{
		Name:    "index_escrow_payments_plan",
		Version: "20250101000008",
		Up: func(ctx context.Context, db bun.IDB) error {
			return createIndex(ctx, db, (*paymentRecord)(nil), "idx_escrow_payments_plan", "plan_id")
		},
	},
}

func createTable(model any) func(ctx context.Context, db bun.IDB) error {
	return func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		return err
	}
}

func createIndex(ctx context.Context, db bun.IDB, model any, name string, columns ...string) error {
	_, err := db.NewCreateIndex().
		Model(model).
		Index(name).
		Column(columns...).
		IfNotExists().
		Exec(ctx)
	return err
}

// migrate applies every migration not yet recorded, each in its own
// transaction.
func migrate(ctx context.Context, db *bun.DB, migrations []Migration) error {
	if _, err := db.NewCreateTable().Model((*migrationRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var applied []migrationRecord
	if err := db.NewSelect().Model(&applied).Scan(ctx); err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.NewInsert().Model(&migrationRecord{Version: m.Version, Name: m.Name}).Exec(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.Name, m.Version, err)
		}
	}
	return nil
}
