package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/storefront-labs/hubsync/internal/catalog"
	"github.com/storefront-labs/hubsync/internal/command"
	"github.com/storefront-labs/hubsync/internal/config"
	httpapi "github.com/storefront-labs/hubsync/internal/http"
	"github.com/storefront-labs/hubsync/internal/hub"
	"github.com/storefront-labs/hubsync/internal/obs"
	"github.com/storefront-labs/hubsync/internal/propagate"
)

func newServeCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the synchronization agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file")
	cmd.Flags().String("http-addr", "", "HTTP listen address")
	cmd.Flags().String("node-id", "", "identity of this node (tenant id)")
	cmd.Flags().String("hub-url", "", "Hub notification endpoint")
	cmd.Flags().Bool("staging", false, "suppress outbound propagation")
	cmd.Flags().Bool("log-pretty", false, "human-readable log output")
	return cmd
}

func serve(cfg config.Config) error {
	obs.InitLogger("hubsync", cfg.LogPretty)
	log.Info().Str("node_id", cfg.NodeID).Bool("staging", cfg.Staging).Msg("agent starting")

	st := catalog.New()
	exec := command.NewExecutor(st, cfg.NodeID)

	client := hub.NewClient(cfg.HubURL, cfg.HubAdminKey, cfg.NotifyTimeout)
	notifier := hub.NewNotifier(client, cfg.NodeID, cfg.NotifyQueueSize, cfg.NotifySenders)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)

	cache := propagate.NewDebounceCache(cfg.DebounceTTL)
	prop := propagate.New(cfg, cache, notifier)
	prop.Attach(st)

	app := httpapi.NewApp(cfg, st, exec, notifier)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listen")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case s := <-sigc:
		log.Info().Str("signal", s.String()).Msg("shutdown signal")
	}

	app.StartShutdown()
	log.Info().Int("pending", notifier.Pending()).Msg("shutdown drain begin")
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := notifier.DrainUntil(ctxDrain); !drained {
		log.Warn().Msg("shutdown drain timeout")
	} else {
		log.Info().Msg("shutdown drain complete")
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	prop.Detach(st)
	log.Info().Msg("agent stopped")
	return nil
}
