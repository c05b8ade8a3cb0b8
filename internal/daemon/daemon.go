package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"wizqueue/internal/config"
	"wizqueue/internal/logging"
	"wizqueue/internal/processing"
)

// APIServer is the HTTP surface the daemon starts and stops.
type APIServer interface {
	Start() error
	Addr() string
	Shutdown(ctx context.Context) error
}

// Consumer feeds tasks from an external broker until ctx ends.
type Consumer interface {
	Run(ctx context.Context) error
}

// Components are the collaborators the daemon owns the lifecycle of.
type Components struct {
	API        APIServer
	Pool       *processing.Pool
	Dispatcher processing.Dispatcher
	// Consumer is nil for the in-memory broker.
	Consumer Consumer
	// Pending lists invoices to resubmit at startup. Nil skips resubmission.
	Pending processing.PendingLister
}

// Daemon enforces single-instance execution and runs the components.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddress   string
	Workers      int
	InFlight     int
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.API == nil || comps.Pool == nil || comps.Dispatcher == nil {
		return nil, errors.New("daemon requires config, api server, processing pool and dispatcher")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, starts the pool and the API, and resubmits
// pending invoices.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another wizqueue daemon instance is already running")
	}

	// The pool is stopped explicitly so in-flight tasks see a shutdown
	// rather than an operator cancellation.
	if err := d.comps.Pool.Start(context.WithoutCancel(ctx)); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start processing pool: %w", err)
	}
	if err := d.comps.API.Start(); err != nil {
		_ = d.comps.Pool.Stop(ctx)
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.running.Store(true)

	if d.comps.Pending != nil {
		if _, err := processing.Resubmit(ctx, d.comps.Pending, d.comps.Dispatcher, d.logger); err != nil {
			d.logger.Warn("resubmit pending invoices failed", logging.Error(err))
		}
	}

	d.logger.Info("wizqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.comps.API.Addr()),
	)
	return nil
}

// Stop shuts the API down, stops the pool and releases the lock. ctx bounds
// the graceful phase.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return nil
	}

	var errs []error
	if err := d.comps.API.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown api: %w", err))
	}
	if err := d.comps.Pool.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop processing pool: %w", err))
	}
	if err := d.comps.Dispatcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("wizqueue daemon stopped")
	return errors.Join(errs...)
}

// Run starts the daemon, blocks until ctx is cancelled or the consumer
// fails, then stops within the configured shutdown timeout.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if d.comps.Consumer != nil {
		group.Go(func() error {
			if err := d.comps.Consumer.Run(groupCtx); err != nil {
				return fmt.Errorf("amqp consumer: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	runErr := group.Wait()
	if runErr != nil {
		d.logger.Error("daemon component failed", logging.Error(runErr))
	}

	d.logger.Info("wizqueue daemon shutting down")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.ShutdownTimeout())
	defer cancel()
	return errors.Join(runErr, d.Stop(stopCtx))
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddress:   d.comps.API.Addr(),
		Workers:      d.comps.Pool.Workers(),
		InFlight:     len(d.comps.Pool.Snapshot()),
		LockFilePath: d.lockPath,
	}
}
