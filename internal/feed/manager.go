package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/deiragold/spotfeed/internal/model"
	"github.com/deiragold/spotfeed/internal/quote"
)

// ErrNoEndpoint rejects a connect with an empty endpoint.
var ErrNoEndpoint = errors.New("no feed endpoint")

// Manager is the feed connection state machine. It owns at most one live
// Client at a time, subscribes the configured symbol set immediately after
// the handshake, and forwards validated quote events to the store.
//
// The Manager never reconnects by itself: on transport failure it reports
// the error, releases the connection, and parks in StateDisconnected until
// something outside (the Supervisor) calls Connect again.
type Manager struct {
	cfg    ManagerConfig
	store  *quote.Store
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	endpoint      string
	client        Client
	connDone      chan struct{}
	cancelAttempt context.CancelFunc
	stats         Stats

	transitions chan State
	wg          sync.WaitGroup
}

// NewManager creates a feed Manager in StateIdle.
func NewManager(cfg ManagerConfig, store *quote.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:         cfg,
		store:       store,
		logger:      logger,
		state:       StateIdle,
		transitions: make(chan State, 16),
	}
}

// Connect opens the feed connection to endpoint and subscribes. Idempotent:
// calling it while already connecting or connected to the same endpoint is
// a no-op, so a second simultaneous connection can never exist. Connecting
// to a different endpoint discards the current connection (or the
// in-flight attempt) first.
//
// Connect blocks until the handshake and subscribe have completed or
// failed; on failure the manager is left in StateDisconnected with the
// transport released.
func (m *Manager) Connect(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return ErrNoEndpoint
	}

	m.mu.Lock()
	switch m.state {
	case StateTerminated:
		m.mu.Unlock()
		return ErrTerminated
	case StateConnecting, StateConnected, StateStreaming:
		if m.endpoint == endpoint {
			m.mu.Unlock()
			return nil
		}
		// Endpoint changed: abandon the current connection or attempt.
		m.releaseLocked()
	}

	m.endpoint = endpoint
	m.setStateLocked(StateConnecting)

	attemptCtx, cancel := context.WithCancel(ctx)
	m.cancelAttempt = cancel
	cli := NewClient(ClientConfig{
		URL:          endpoint,
		Secret:       m.cfg.Secret,
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger)
	m.client = cli
	done := make(chan struct{})
	m.connDone = done
	m.mu.Unlock()

	err := cli.Connect(attemptCtx)

	m.mu.Lock()
	if m.client != cli {
		// Superseded by an endpoint switch while dialing; discard quietly.
		m.mu.Unlock()
		cli.Close()
		return nil
	}
	if err != nil {
		m.releaseLocked()
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		m.logger.Error("feed connect failed", "endpoint", endpoint, "error", err)
		return err
	}
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	if err := m.subscribe(cli); err != nil {
		m.mu.Lock()
		if m.client == cli {
			m.releaseLocked()
			m.setStateLocked(StateDisconnected)
		}
		m.mu.Unlock()
		m.logger.Error("feed subscribe failed", "endpoint", endpoint, "error", err)
		return err
	}

	m.mu.Lock()
	if m.client == cli {
		m.setStateLocked(StateStreaming)
		m.stats.Connects++
		m.wg.Add(1)
		go m.readLoop(cli, done)
	}
	m.mu.Unlock()

	m.logger.Info("feed streaming",
		"endpoint", endpoint,
		"symbols", m.cfg.Symbols,
	)
	return nil
}

// Disconnect closes the current connection, keeping the endpoint for a
// later Connect. No-op unless a connection or attempt exists.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnecting, StateConnected, StateStreaming:
		m.releaseLocked()
		m.setStateLocked(StateDisconnected)
	}
}

// Shutdown releases the connection and terminates the manager for good.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.setStateLocked(StateTerminated)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("feed manager terminated")
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Endpoint returns the most recently requested endpoint.
func (m *Manager) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Stats returns event counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Transitions returns a channel of state changes. Sends are non-blocking;
// a slow reader misses intermediate states, never blocks the feed.
func (m *Manager) Transitions() <-chan State {
	return m.transitions
}

// releaseLocked unconditionally releases the transport: cancels a pending
// dial, closes the client, and stops the read loop. Callers set the next
// state. Must hold m.mu.
func (m *Manager) releaseLocked() {
	if m.cancelAttempt != nil {
		m.cancelAttempt()
		m.cancelAttempt = nil
	}
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
}

// setStateLocked records a state change and notifies listeners.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("feed state change", "from", m.state, "to", s)
	m.state = s

	select {
	case m.transitions <- s:
	default:
	}
}

// subscribe sends the request-data frame carrying the full symbol set.
func (m *Manager) subscribe(cli Client) error {
	payload, err := json.Marshal(subscribeRequest{
		SessionID: cli.SessionID(),
		Symbols:   m.cfg.Symbols,
	})
	if err != nil {
		return err
	}

	frame, err := json.Marshal(Envelope{
		Event: EventRequestData,
		Data:  payload,
	})
	if err != nil {
		return err
	}

	return cli.Send(frame)
}

// readLoop consumes one connection's frames until the transport fails or
// the manager releases it.
func (m *Manager) readLoop(cli Client, done <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-done:
			return

		case err := <-cli.Errors():
			m.logger.Error("feed transport error", "error", err)
			m.handleDisconnect(cli)
			return

		case msg, ok := <-cli.Messages():
			if !ok {
				m.handleDisconnect(cli)
				return
			}
			m.dispatch(msg)
		}
	}
}

// handleDisconnect moves to StateDisconnected if cli is still the live
// connection, guaranteeing the transport is released on the error path.
func (m *Manager) handleDisconnect(cli Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != cli {
		return
	}
	m.releaseLocked()
	m.setStateLocked(StateDisconnected)
}

// dispatch validates one feed frame and applies market data to the store.
// Malformed frames are dropped with a warning and never affect state.
func (m *Manager) dispatch(msg TimestampedMessage) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		m.logger.Warn("unparseable feed frame", "error", err)
		m.bump(func(s *Stats) { s.Malformed++ })
		return
	}

	switch env.Event {
	case EventMarketData:
		var u model.QuoteUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			m.logger.Warn("unparseable market data", "error", err)
			m.bump(func(s *Stats) { s.Malformed++ })
			return
		}
		u.ReceivedAt = msg.ReceivedAt

		if _, err := m.store.Apply(u); err != nil {
			m.bump(func(s *Stats) { s.Malformed++ })
			return
		}
		m.bump(func(s *Stats) { s.Applied++ })

	case EventError:
		m.logger.Error("feed reported error", "payload", string(env.Data))
		m.bump(func(s *Stats) { s.Skipped++ })

	default:
		m.logger.Debug("skipping feed event", "event", env.Event)
		m.bump(func(s *Stats) { s.Skipped++ })
	}
}

func (m *Manager) bump(f func(*Stats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}
