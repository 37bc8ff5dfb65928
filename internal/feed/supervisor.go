package feed

import (
	"context"
	"log/slog"
	"time"
)

// Supervisor is the reconnection policy the Manager deliberately does not
// have. It reacts to endpoint announcements and to StateDisconnected
// transitions with exponential-backoff reconnects; a successful connect
// resets the backoff.
type Supervisor struct {
	cfg    SupervisorConfig
	mgr    *Manager
	logger *slog.Logger
}

// NewSupervisor creates a Supervisor over mgr.
func NewSupervisor(cfg SupervisorConfig, mgr *Manager, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		mgr:    mgr,
		logger: logger,
	}
}

// Run supervises the manager until ctx is cancelled, then shuts it down.
// endpoints delivers the feed endpoint whenever it becomes known or
// changes; an endpoint switch mid-attempt is handled by the manager
// itself (the stale attempt is discarded).
func (s *Supervisor) Run(ctx context.Context, endpoints <-chan string) error {
	transitions := s.mgr.Transitions()
	wait := s.cfg.BaseDelay
	endpoint := ""

	for {
		select {
		case <-ctx.Done():
			s.mgr.Shutdown()
			return nil

		case ep, ok := <-endpoints:
			if !ok {
				endpoints = nil
				continue
			}
			if ep == "" || ep == endpoint {
				continue
			}
			endpoint = ep
			wait = s.cfg.BaseDelay
			if err := s.mgr.Connect(ctx, endpoint); err != nil {
				s.logger.Warn("connect failed, will retry",
					"endpoint", endpoint,
					"error", err,
				)
				// The failed attempt emitted StateDisconnected; the
				// transitions case below schedules the retry.
			} else {
				wait = s.cfg.BaseDelay
			}

		case st := <-transitions:
			if st != StateDisconnected || endpoint == "" {
				continue
			}

			s.logger.Info("feed disconnected, reconnecting",
				"endpoint", endpoint,
				"wait", wait,
			)

			select {
			case <-ctx.Done():
				s.mgr.Shutdown()
				return nil
			case <-time.After(wait):
			}

			if err := s.mgr.Connect(ctx, endpoint); err != nil {
				wait = s.backoff(wait)
			} else {
				wait = s.cfg.BaseDelay
			}
		}
	}
}

// backoff doubles the wait up to the configured cap.
func (s *Supervisor) backoff(wait time.Duration) time.Duration {
	wait *= 2
	if wait > s.cfg.MaxDelay {
		wait = s.cfg.MaxDelay
	}
	return wait
}
