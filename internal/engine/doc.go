// Package engine implements the treasury governance engine.
//
// The engine owns every state transition of a DAO: staking, proposal
// creation, multisig approval, stake-weighted voting, execution of the
// approved action, and claims against recurring payments.
//
// ARCHITECTURE:
//
// Single Writer:
// Every public operation runs as one SQLite transaction while holding the
// engine's writer lock. This ensures:
// - An operation either fully commits or leaves no trace
// - Funds move in the same unit of work as the bookkeeping
// - Events are appended in a gap-free seq order
//
// Operation Flow:
// 1. A request ID is issued for the operation
// 2. A transaction opens; the clock is read once
// 3. The custodian is bound to the transaction (or journaled)
// 4. Rows are loaded, checked, mutated and saved under version checks
// 5. Staged events are appended with consecutive seqs
// 6. Commit; events are queued for the sink
//
// A version conflict at step 4 or 5 restarts the operation from step 2,
// up to the retry budget. Any governance rejection rolls back and is
// returned as a *dao.Error.
//
// Authorization paths live in package policy; the engine loads their
// inputs and applies their verdicts. Approved actions are applied by a
// dao.ActionVisitor, so every action kind is handled exhaustively.
//
// Time:
// Clock supplies unix seconds for deadlines and claim times. Sequencer is
// the logical clock for event order. Never order by wall clock.
package engine
