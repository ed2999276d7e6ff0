package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/refcrew/refcrew/go/internal/gamesource"
	"github.com/refcrew/refcrew/go/internal/notify"
	"github.com/refcrew/refcrew/go/internal/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := loadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	database, dbConfig, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("setup database")
	}
	defer database.Close()

	// Game snapshots normally come from the embedding scheduling system;
	// the daemon only needs a source for assignment creation, which it does
	// not drive, so an empty static source is enough here.
	games := gamesource.NewStatic()
	engine := setupEngine(database, games, cfg)

	publisher, nc, err := outbox.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("create NATS publisher")
	}
	defer nc.Close()

	subscriber, err := notify.NewSubscriber(cfg.NATS.URL, cfg.NATS.SubjectPrefix, notify.LogNotifier{})
	if err != nil {
		log.Fatal().Err(err).Msg("create notification subscriber")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	// Relay path: LISTEN/NOTIFY when a channel is configured, plain polling
	// otherwise.
	if cfg.Outbox.NotifyChannel != "" {
		listenerCfg := outbox.DefaultListenerConfig()
		listenerCfg.DatabaseURL = dbConfig.DSN()
		listenerCfg.NotifyChannel = cfg.Outbox.NotifyChannel
		listenerCfg.BatchSize = cfg.Outbox.BatchSize

		listener, err := outbox.NewListener(engine.Outbox, publisher, listenerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create outbox listener")
		}
		go func() {
			log.Info().Str("channel", listenerCfg.NotifyChannel).Msg("starting outbox listener")
			errCh <- listener.Start(ctx)
		}()
	} else {
		workerCfg := outbox.DefaultConfig()
		workerCfg.PollInterval = time.Duration(cfg.Outbox.PollIntervalSeconds) * time.Second
		workerCfg.BatchSize = cfg.Outbox.BatchSize

		worker := outbox.NewWorker(engine.Outbox, publisher, workerCfg)
		if err := worker.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("start outbox worker")
		}
		defer func() {
			if err := worker.Stop(); err != nil {
				log.Error().Err(err).Msg("stop outbox worker")
			}
		}()
	}

	go func() {
		errCh <- subscriber.Start(ctx)
	}()
	go runReconciler(ctx, engine)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		<-shutdownCtx.Done()
		log.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		log.Error().Err(err).Msg("worker exited unexpectedly")
	}
}
