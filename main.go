package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"string_server/config"
	"string_server/logger"
	"string_server/routes"
	"string_server/services"
	"string_server/socket"
	"string_server/store"
	"string_server/store/dynamo"
	"string_server/store/memory"
	"string_server/store/sqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and Socket.IO server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "override STRING_PORT")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Archive every match whose chat window has elapsed, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			return sweep(cmd.Context(), cfg)
		},
	}

	rootCmd := &cobra.Command{
		Use:          "string-server",
		Short:        "String matching server",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd, sweepCmd)
	return rootCmd
}

// openStore builds the ledger driver selected by the configuration.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath, cfg.TxMaxRetries, log)
	case config.DriverDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.ClientConfig{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoEndpoint,
			AccessKeyID:     cfg.DynamoAccessKeyID,
			SecretAccessKey: cfg.DynamoSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init dynamodb client: %w", err)
		}
		st := dynamo.New(client, cfg.DynamoTable, cfg.TxMaxRetries, log)
		if cfg.DynamoCreateTable {
			if err := st.EnsureTable(ctx); err != nil {
				return nil, fmt.Errorf("ensure dynamodb table: %w", err)
			}
		}
		return st, nil
	}
	return memory.New(memory.WithMaxAttempts(cfg.TxMaxRetries)), nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New("string-server", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info().Str("store_driver", cfg.StoreDriver).Msg("✅ ledger store ready")

	hub := socket.NewSocketServer(log)
	go func() {
		if err := hub.Server.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()
	defer hub.Server.Close()

	clock := services.Clock(nil)
	svc := routes.Services{
		Users:   &services.UserProfileService{Store: st, Clock: clock, Log: log},
		Quota:   &services.QuotaService{Store: st, Clock: clock, Log: log},
		Tugs:    &services.TugService{Store: st, Clock: clock, Log: log, Notifier: hub},
		Matches: &services.MatchService{Store: st, Clock: clock, Log: log},
		Conn:    &services.ConnectionService{Store: st, Clock: clock, Log: log, Notifier: hub},
		Dates:   &services.DateService{Store: st, Clock: clock, Log: log, Notifier: hub},
		Ratings: &services.ReputationService{Store: st, Clock: clock, Log: log},
		Radar:   &services.RadarService{Store: st, Clock: clock, Log: log},
	}

	if cfg.ExpirySweepInterval > 0 {
		sweeper := &services.ExpirySweeper{Store: st, Clock: clock, Log: log, Interval: cfg.ExpirySweepInterval}
		go func() { _ = sweeper.Run(ctx) }()
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", hub.Server)
	mux.Handle("/", routes.NewRouter(st, svc))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(mux)

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("🚀 starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweep(ctx context.Context, cfg *config.Config) error {
	log := logger.New("string-sweep", cfg.LogLevel)
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	sweeper := &services.ExpirySweeper{Store: st, Log: log}
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("archived", n).Msg("✅ sweep complete")
	return nil
}
