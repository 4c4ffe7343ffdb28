// Package store provides SQLite-backed durable storage for treasury
// governance state.
//
// Tables:
//   - daos: one configuration row per DAO
//   - stakes: escrowed balances per (dao, owner)
//   - proposals: governance intents and their tallies
//   - votes: at most one immutable record per (dao, proposal, voter)
//   - obligations: recurring payments per (dao, recipient)
//   - events: append-only lifecycle log ordered by logical seq
//   - accounts: balances for the SQLite ledger custodian
//
// # Concurrency
//
// Every operation runs in one transaction via Update. Mutable rows carry a
// version column; Save* methods issue UPDATE ... WHERE version = ? and
// return ErrConflict when the row changed underneath the caller. There is
// no last-writer-wins path.
//
// # Deterministic Reads
//
// List queries order by key (ORDER BY ... COLLATE BINARY) or seq so that
// results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
