package cmd

import (
	"context"
	"fmt"

	"raffle/application"
	"raffle/config"
	"raffle/database"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/httpapi"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// eventBus is a publisher that also feeds in-process handlers
type eventBus interface {
	interfaces.EventPublisher
	RegisterLocalHandler(eventType events.EventType, handler infrastructure.LocalHandler)
}

func newServeCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the round close worker",
		Long: `Starts the raffle service: the HTTP API, the worker that closes due
rounds and chases missing randomness, and the oracle subscription.

NATS is used when NATS_SERVERS is set; otherwise events stay in process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrateFirst && config.Get().LedgerBackend == config.BackendPostgres {
				if err := database.MigrateUp(config.Get().GetDatabaseURL()); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), config.Get())
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply database migrations before starting")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"backend":     cfg.LedgerBackend,
	}).Info("Starting raffle ledger...")

	metrics := observability.NewMetrics()

	var (
		natsClient *infrastructure.NATSClient
		publisher  eventBus
	)
	if cfg.NATSEnabled() {
		log.Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers, infrastructure.SourceService)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureStreams(mapper); err != nil {
			return err
		}
		publisher = infrastructure.NewNATSEventPublisher(natsClient, mapper, metrics)
	} else {
		log.Warn("NATS disabled, events are delivered in process only")
		publisher = infrastructure.NewLocalEventPublisher()
	}

	for _, eventType := range metrics.EventTypes() {
		publisher.RegisterLocalHandler(eventType, metrics.HandleEvent)
	}

	if cfg.DiscordEnabled() {
		session, err := infrastructure.OpenDiscordSession(cfg.DiscordToken)
		if err != nil {
			return err
		}
		announcer := infrastructure.NewDiscordAnnouncer(session, cfg.DiscordChannelID)
		for _, eventType := range announcer.EventTypes() {
			publisher.RegisterLocalHandler(eventType, announcer.HandleEvent)
		}
		log.WithField("channel_id", cfg.DiscordChannelID).Info("Discord announcements enabled")
	}

	l, err := openLedger(ctx, cfg, publisher)
	if err != nil {
		return err
	}
	defer l.Close()

	requester := application.NewOracleRequester(publisher, application.DefaultRequestRetry)
	application.RegisterApplicationSubscriptions(publisher, requester)
	handler := application.NewRandomnessHandler(l.engine.Settlement, metrics)

	if err := wireOracle(ctx, cfg, natsClient, publisher, handler); err != nil {
		return err
	}

	worker := application.NewRoundCloseWorker(l.engine.Rounds, requester, cfg.CloseCheckInterval)
	router := httpapi.NewRouter(l.engine, httpapi.Options{
		Metrics:        metrics,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := httpapi.NewServer(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stop := worker.Start(gctx)
		<-gctx.Done()
		stop()
		return nil
	})
	g.Go(func() error {
		return httpapi.Serve(gctx, srv)
	})

	err = g.Wait()
	log.Info("Shutdown completed")
	return err
}

// wireOracle connects randomness fulfillments to the settlement handler
func wireOracle(
	ctx context.Context,
	cfg *config.Config,
	natsClient *infrastructure.NATSClient,
	publisher eventBus,
	handler *application.RandomnessHandler,
) error {
	if natsClient != nil {
		if err := application.SubscribeRandomness(ctx, natsClient, handler); err != nil {
			return err
		}
		if cfg.LocalOracle {
			oracle := infrastructure.NewLocalOracle(nil, infrastructure.NATSSink(natsClient))
			if err := natsClient.Subscribe(ctx, infrastructure.SubjectRandomnessRequested, oracle.HandleMessage); err != nil {
				return fmt.Errorf("failed to subscribe local oracle: %w", err)
			}
			log.Warn("local oracle answering randomness requests, do not use in production")
		}
		return nil
	}

	if cfg.LocalOracle {
		oracle := infrastructure.NewLocalOracle(nil, handler.HandleMessage)
		publisher.RegisterLocalHandler(events.EventTypeRandomnessRequest, oracle.HandleEvent)
		log.Warn("local oracle answering randomness requests, do not use in production")
		return nil
	}

	log.Warn("no randomness source configured, rounds will wait in drawing")
	return nil
}
