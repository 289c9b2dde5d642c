package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mbocsi/silaevents/client"
	"github.com/mbocsi/silaevents/config"
)

type contextKey struct{}

// NewRootCmd returns the silaevent root command. Its pre-run hook loads the
// configuration and installs the process logger for every subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silaevent",
		Short: "Send and receive SiLA EventReceiver events over SOAP",
		Long: `
silaevent talks to a SiLA EventReceiver. It sends ResponseEvent, DataEvent,
ErrorEvent and StatusEvent messages to a receiver endpoint, runs a local
receiver for testing, and exposes the send operations as MCP tools.
Configuration is read from silaevent.yaml in --home, SILAEVENT_* environment
variables and flags.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			slog.SetDefault(cfg.Log.Logger())
			cmd.SetContext(withConfig(cmd, cfg))
			return nil
		},
	}
	config.AddFlags(cmd)
	return cmd
}

func withConfig(cmd *cobra.Command, cfg config.Config) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, cfg)
}

func configFrom(cmd *cobra.Command) config.Config {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(contextKey{}).(config.Config); ok {
			return cfg
		}
	}
	return config.DefaultConfig
}

// newClient resolves the receiver endpoint, using mDNS when --discover is set.
func newClient(cfg config.Config) (*client.EventReceiverClient, error) {
	endpoint := cfg.Endpoint
	if cfg.Discover {
		found, err := client.DiscoverEventReceiver(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("discover event receiver: %w", err)
		}
		endpoint = found
	}
	return client.NewEventReceiverClient(endpoint,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(slog.Default()),
	), nil
}
