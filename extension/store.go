package extension

import (
	"context"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/store/mongo"
	"github.com/xraph/escrow/store/postgres"
	"github.com/xraph/escrow/store/sqlite"
)

// OpenStore constructs the store backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		s, err = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		s, err = postgres.Open(cfg.DSN, postgres.Options{MaxOpenConns: cfg.MaxOpenConns})
	case DriverMongo:
		s, err = mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		s = memory.New()
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
