package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/karagenc/sio-core/internal/config"
	"github.com/karagenc/sio-core/internal/log"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sio-server",
	Short: "Run a socket.io server",
	Long: "Serve socket.io clients over WebSocket, with an in-memory or Redis backed adapter.\n" +
		"The main namespace runs demo handlers: join, leave, say and echo.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := log.New("info")
		cfg, path, err := config.Load(bootLogger, configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := log.New(cfg.LogLevel)
		logger.Debug().Str("path", path).Msg("config loaded")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		return a.run(ctx)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "Configuration file (YAML). Created with defaults if missing")
	flags.String("addr", "", "HTTP listen address")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("adapter", "", "Adapter: memory or redis")
	flags.String("redis-addr", "", "Redis address for the redis adapter")
	flags.String("serializer", "", "JSON serializer: std, go-json, sonic or fast")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}
