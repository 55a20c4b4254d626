// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store keeps three append-only tables:
//   - runs: one row per simulation run (model hash, seed, time step, status)
//   - count_rows: the rows of every count buffer, in firing order
//   - checkpoints: engine snapshots taken on request or at the end of a run
//
// All reads order by the seq column, never by wall time, so two runs of the
// same model and seed read back identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Count rows and checkpoints must reference a run
//
// Queries are built with goqu (sqlite3 dialect) and scanned with sqlx.
// Checkpoint hashes are computed by ir.CheckpointHash over canonical JSON.
package store
