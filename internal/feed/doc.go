// Package feed implements the live quote feed client.
//
// Three layers:
//   - Client: one WebSocket connection (dial, read loop, heartbeat)
//   - Manager: the connection state machine. Owns at most one live Client,
//     subscribes the symbol set on connect, and forwards validated quote
//     events to the store. It never reconnects on its own.
//   - Supervisor: the external reconnection policy: exponential backoff
//     reconnect and endpoint switching on top of the Manager.
package feed
