// Package gateway implements the Gateway Connection Manager.
//
// The Connection Manager:
//   - Owns at most one gateway WebSocket at a time
//   - Identifies or resumes after the HELLO handshake
//   - Heartbeats at the server-dictated interval and tears down zombie sockets
//   - Reconnects with exponential backoff (1s doubling to 60s) unless stopped
//   - Routes dispatch events to a MessageSink
//
// All protocol state is mutated by a single event loop (Run). Sockets, timers and
// user commands only post events into that loop.
package gateway
