// Package daemon provides the background process that keeps reminders
// firing and synced.
//
// The daemon:
// 1. Restores device triggers from the store on startup
// 2. Runs an initial resync sweep against the remote mirror
// 3. Repeats the sweep on a fixed schedule
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remind/internal/service"
)

// Config holds configuration for the daemon.
type Config struct {
	// ResyncInterval is how often to sweep unsynced records and pull
	// remote changes.
	ResyncInterval time.Duration

	// Pull controls whether the periodic sweep also merges the remote
	// list back in. Off means push-only.
	Pull bool

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ResyncInterval: 5 * time.Minute,
		Pull:           true,
		Logger:         log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates trigger restoration and periodic syncing.
type Daemon struct {
	svc    *service.Service
	config *Config

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon over the given service.
func New(svc *service.Service, config *Config) (*Daemon, error) {
	if svc == nil {
		return nil, fmt.Errorf("svc cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.ResyncInterval <= 0 {
		return nil, fmt.Errorf("resync interval must be positive, got %v", config.ResyncInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		svc:    svc,
		config: config,
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Re-register a trigger for every stored reminder
// 2. Run one immediate resync sweep
// 3. Schedule recurring sweeps
//
// This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	restored, err := d.svc.RestoreTriggers(d.ctx)
	if err != nil {
		return fmt.Errorf("trigger restoration failed: %w", err)
	}
	d.config.Logger.Printf("Restored %d triggers", restored)

	d.runSweep()

	spec := fmt.Sprintf("@every %s", d.config.ResyncInterval)
	if _, err := d.cron.AddFunc(spec, d.runSweep); err != nil {
		return fmt.Errorf("failed to schedule resync sweep: %w", err)
	}
	d.cron.Start()
	d.config.Logger.Printf("Resync sweep scheduled %s", spec)

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. A sweep in flight is allowed to
// finish.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()
	<-d.cron.Stop().Done()
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// runSweep executes one resync against the remote mirror. Failures are
// logged, never fatal: the next tick retries.
func (d *Daemon) runSweep() {
	d.wg.Add(1)
	defer d.wg.Done()

	if d.ctx.Err() != nil {
		return
	}

	report, err := d.svc.Resync(d.ctx, d.config.Pull)
	if err != nil {
		d.config.Logger.Printf("Resync sweep failed: %v", err)
		return
	}
	if report.Synced > 0 || report.Dropped > 0 {
		d.config.Logger.Printf("Sweep: %d synced, %d dropped", report.Synced, report.Dropped)
	}
}
