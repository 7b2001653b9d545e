package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exampro-service/internal/config"
	"exampro-service/internal/events"
	"exampro-service/internal/metrics"
	transport "exampro-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the leaderboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := transport.NewHandler(rt.service, logger, cfg.DefaultPageSize(), cfg.MaxPageSize())
	var consumerDone <-chan struct{}
	if cfg.Events.Enabled {
		ps, err := events.NewPubSub(eventsConfig(cfg), logger)
		if err != nil {
			return err
		}
		defer ps.Close()
		consumer := events.NewConsumer(ps.Subscriber, cfg.Events.Topic, rt.service, logger)
		if consumerDone, err = consumer.Start(ctx); err != nil {
			return err
		}
		handler.WithSubmissionPublisher(events.NewPublisher(ps.Publisher, cfg.Events.Topic, logger))
	} else {
		done := make(chan struct{})
		close(done)
		consumerDone = done
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting leaderboard service", "port", finalPort, "cache_ttl", cfg.CacheTTL().String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	err = server.Shutdown(shutdownCtx)
	cancel()
	<-consumerDone
	return err
}

func eventsConfig(cfg config.Config) events.Config {
	return events.Config{
		Driver:        cfg.Events.Driver,
		KafkaBrokers:  cfg.Events.KafkaBrokers,
		Topic:         cfg.Events.Topic,
		ConsumerGroup: cfg.Events.ConsumerGroup,
	}
}
