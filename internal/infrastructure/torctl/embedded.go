package torctl

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"

	"torweather/internal/shared/logger"
)

// EmbeddedTor manages an embedded Tor daemon for deployments without a
// system Tor. Bootstrapping takes one to three minutes while the daemon
// fetches directory information and builds circuits.
type EmbeddedTor struct {
	process        *tornago.TorProcess
	controlAddr    string
	startupTimeout time.Duration
	logger         logger.Interface
}

// NewEmbeddedTor creates a new embedded Tor manager. Call Start to launch
// the daemon.
func NewEmbeddedTor(startupTimeout time.Duration) *EmbeddedTor {
	if startupTimeout == 0 {
		startupTimeout = 3 * time.Minute
	}
	return &EmbeddedTor{
		startupTimeout: startupTimeout,
		logger:         logger.NewLogger().With("component", "torctl.embedded"),
	}
}

// Start launches the Tor daemon and blocks until it has bootstrapped.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	e.logger.Infow("starting embedded Tor daemon, bootstrap can take a few minutes")

	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = process.Stop()
		return ctx.Err()
	default:
	}

	e.process = process
	e.controlAddr = process.ControlAddr()
	e.logger.Infow("embedded Tor daemon running", "control_addr", e.controlAddr)

	return nil
}

// Stop shuts down the daemon. Safe to call on an unstarted instance.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}

	err := e.process.Stop()
	e.process = nil
	return err
}

// ControlAddr returns the control port address, or "" before Start.
func (e *EmbeddedTor) ControlAddr() string {
	return e.controlAddr
}
