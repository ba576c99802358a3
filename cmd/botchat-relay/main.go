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

	"github.com/matheus3301/botchat/internal/config"
	"github.com/matheus3301/botchat/internal/ids"
	"github.com/matheus3301/botchat/internal/logging"
	"github.com/matheus3301/botchat/internal/profile"
	"github.com/matheus3301/botchat/internal/relay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr   string
		noBot  bool
		delay  time.Duration
		prefix string
		node   int64
	)
	cmd := &cobra.Command{
		Use:          "botchat-relay",
		Short:        "Local WebSocket endpoint that echoes chat frames and answers as a bot",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(profile.ConfigPath())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Relay.Addr = addr
			}
			if cmd.Flags().Changed("bot-delay") {
				cfg.Relay.BotDelay = delay
			}
			if cmd.Flags().Changed("bot-prefix") {
				cfg.Relay.BotPrefix = prefix
			}
			bot := cfg.RelayBot() && !noBot

			gen, err := ids.New(node)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, bot, gen)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "only echo, never answer")
	cmd.Flags().DurationVar(&delay, "bot-delay", 0, "delay before the bot answers")
	cmd.Flags().StringVar(&prefix, "bot-prefix", "", "text prepended to bot answers")
	cmd.Flags().Int64Var(&node, "node", 1, "snowflake node id for generated frame ids")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, bot bool, gen *ids.Generator) error {
	logger := logging.Console(cfg.Log.Level).Named("relay")
	defer func() { _ = logger.Sync() }()

	hub := relay.New(relay.Options{
		Bot:       bot,
		BotDelay:  cfg.Relay.BotDelay,
		BotPrefix: cfg.Relay.BotPrefix,
	}, gen.FrameID, logger)
	defer hub.Close()

	srv := &http.Server{
		Addr:              cfg.Relay.Addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", zap.String("addr", cfg.Relay.Addr), zap.Bool("bot", bot))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", cfg.Relay.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("relay shutting down", zap.Int("peers", hub.Peers()))
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
