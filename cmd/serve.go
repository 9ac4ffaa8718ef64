package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-monitor/internal/monitor"
	"github.com/ngenohkevin/hivedeck-monitor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor and serve the HTTP API (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon, err := startMonitor(ctx)
	if err != nil {
		return err
	}
	defer mon.Stop()

	notify(daemon.SdNotifyReady)
	defer notify(daemon.SdNotifyStopping)

	if err := server.New(cfg, mon, nil).Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func startMonitor(ctx context.Context) (*monitor.Monitor, error) {
	mon, err := monitor.New(cfg, monitor.Deps{})
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}
	if err := mon.Start(ctx); err != nil {
		mon.Stop()
		return nil, err
	}
	return mon, nil
}

// notify reports state to systemd; outside a unit it does nothing
func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warnf("failed to notify systemd: %v", err)
		return
	}
	if sent {
		log.WithField("state", state).Debug("notified systemd")
	}
}
