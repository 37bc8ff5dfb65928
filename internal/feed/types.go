package feed

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrTerminated      = errors.New("feed manager terminated")
)

// State is the connection state of the Manager.
type State string

const (
	StateIdle         State = "idle"         // no endpoint known
	StateConnecting   State = "connecting"   // dial in flight
	StateConnected    State = "connected"    // handshake done, subscribing
	StateStreaming    State = "streaming"    // subscribed, receiving quotes
	StateDisconnected State = "disconnected" // transport closed or failed
	StateTerminated   State = "terminated"   // explicit shutdown, final
)

// Envelope is the wire frame for every feed message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Feed event names.
const (
	EventRequestData = "request-data" // client → server: subscribe symbols
	EventMarketData  = "market-data"  // server → client: quote update
	EventError       = "error"        // server → client: feed-side error
)

// subscribeRequest is the payload of a request-data event. SessionID
// identifies this connection for the server's logs.
type subscribeRequest struct {
	SessionID string   `json:"sessionId"`
	Symbols   []string `json:"symbols"`
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Feed URL (e.g., wss://feed.example.com/stream)
	Secret       string        // Shared feed secret, sent in the dial query
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ManagerConfig configures the feed Manager.
type ManagerConfig struct {
	Secret       string        // Shared feed secret
	Symbols      []string      // Symbol set subscribed on every connect
	PingTimeout  time.Duration // Passed through to the Client
	WriteTimeout time.Duration // Passed through to the Client
	BufferSize   int           // Client message buffer size
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Symbols:      []string{"GOLD", "SILVER"},
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// SupervisorConfig configures reconnection backoff.
type SupervisorConfig struct {
	BaseDelay time.Duration // First reconnect wait
	MaxDelay  time.Duration // Backoff cap
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		BaseDelay: 1 * time.Second,
		MaxDelay:  60 * time.Second,
	}
}

// Stats counts what the manager has done with feed events.
type Stats struct {
	Applied   int64 // quote updates merged into the store
	Malformed int64 // events dropped for missing symbol
	Skipped   int64 // frames that were not market-data
	Connects  int64 // successful connect+subscribe cycles
}
