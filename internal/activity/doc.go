// Package activity records what the relay did: DMs received, replies sent,
// errors and connection status.
//
// Entries flow to two places:
//   - The control panel's activity log (in memory)
//   - An optional PostgreSQL table, written in batches by Writer
//
// Record never blocks. When the database falls behind, the oldest unwritten
// entries are dropped.
package activity
