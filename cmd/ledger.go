package cmd

import (
	"context"
	"fmt"

	"raffle/config"
	"raffle/database"
	"raffle/domain/interfaces"
	"raffle/domain/services"
	"raffle/infrastructure"
	"raffle/repository"
	"raffle/repository/memory"

	log "github.com/sirupsen/logrus"
)

// ledger is the engine bound to the configured storage backend
type ledger struct {
	engine *services.Engine
	store  interfaces.LedgerStore
	db     *database.DB
}

// openLedger connects the configured backend and builds the engine over it.
// Committed mutations publish through publisher.
func openLedger(ctx context.Context, cfg *config.Config, publisher interfaces.EventPublisher) (*ledger, error) {
	defaults, err := cfg.RoundDefaults()
	if err != nil {
		return nil, err
	}
	schedule, err := services.ParseSchedule(cfg.RoundSchedule)
	if err != nil {
		return nil, err
	}
	var opts []services.Option
	if schedule != nil {
		opts = append(opts, services.WithSchedule(schedule))
	}

	l := &ledger{}
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		log.Warn("using the in-memory ledger, rounds are lost on restart")
		l.store = memory.NewLedgerStore(publisher)
	case config.BackendPostgres:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established successfully")
		l.db = db
		l.store = repository.NewLedgerStore(db, func() interfaces.TransactionalEventPublisher {
			return infrastructure.NewNATSTransactionalPublisher(publisher)
		})
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}

	l.engine = services.NewEngine(l.store, publisher, defaults, opts...)
	return l, nil
}

func (l *ledger) Close() {
	if l.db != nil {
		log.Info("Closing database connection...")
		l.db.Close()
	}
}
