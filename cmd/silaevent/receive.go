package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbocsi/silaevents/server"
)

const shutdownTimeout = 5 * time.Second

// NewReceiveCmd runs a local event receiver and prints every accepted event
// as a JSON line on stdout.
func NewReceiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receive",
		Short: "Run a local SiLA event receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			receiver := server.NewReceiver(cfg.Listen, server.ReceiverOptions{
				Path:    cfg.Path,
				Logger:  slog.Default(),
				OnEvent: eventPrinter(cmd.OutOrStdout()),
			})

			if cfg.Advertise {
				port, err := listenPort(cfg.Listen)
				if err != nil {
					return err
				}
				instance, _ := os.Hostname()
				if instance == "" {
					instance = "silaevent"
				}
				adv, err := server.Advertise(instance, port, receiver.Path())
				if err != nil {
					return err
				}
				defer adv.Shutdown()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- receiver.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := receiver.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown receiver: %w", err)
			}
			return <-errCh
		},
	}
}

// eventPrinter writes each event as one JSON line. Receiver handlers run
// concurrently, so writes to w are serialized.
func eventPrinter(w io.Writer) func(server.ReceivedEvent) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(ev server.ReceivedEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(ev); err != nil {
			slog.Warn("Failed to print event", "id", ev.ID, "error", err)
		}
	}
}

func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	return port, nil
}
