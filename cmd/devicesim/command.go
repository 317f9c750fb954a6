package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/media-coordinator/internal/devicesim"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/config"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	defaultTVPort   = 8090
	defaultZonePort = 8091
)

// serveOptions holds the flags of one device subcommand.
type serveOptions struct {
	host     string
	port     int
	logLevel string
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devicesim",
		Short: "Run a simulated media device",
		Example: `  devicesim tv --port 8090
  devicesim zone --port 8091 --log-level debug`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newDeviceCommand("tv", "Simulate a TV player", defaultTVPort, func(l devicesim.Logger) http.Handler {
			return devicesim.NewTV(l).Handler()
		}),
		newDeviceCommand("zone", "Simulate an audio zone", defaultZonePort, func(l devicesim.Logger) http.Handler {
			return devicesim.NewZone(l).Handler()
		}),
	)
	return cmd
}

// newDeviceCommand builds the subcommand for one simulated device kind.
// The server stops on SIGINT or SIGTERM.
func newDeviceCommand(kind, short string, defaultPort int, build func(devicesim.Logger) http.Handler) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, kind, opts, build)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "0.0.0.0", "Address to bind")
	cmd.Flags().IntVarP(&opts.port, "port", "p", defaultPort, "Port to listen on")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// serve validates the port and blocks serving build's handler until ctx is done.
func serve(ctx context.Context, kind string, opts serveOptions, build func(devicesim.Logger) http.Handler) error {
	if opts.port < 0 || opts.port > 65535 {
		return fmt.Errorf("invalid port %d", opts.port)
	}

	logger := logging.New(config.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stdout"}, version).
		Component("devicesim").With("device", kind)

	addr := net.JoinHostPort(opts.host, strconv.Itoa(opts.port))
	return devicesim.Serve(ctx, addr, build(logger), func(a net.Addr) {
		logger.Info("simulator listening", "addr", a.String())
	})
}
