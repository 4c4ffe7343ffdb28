// Package dao defines the governance data model shared by every other
// package: the DAO configuration, stake records, proposals and their
// closed action set, vote records, recurring-payment obligations, the
// lifecycle events, and the typed error taxonomy.
//
// # Action Set
//
// Proposal actions form a sealed sum type. Consumers dispatch through
// ActionVisitor and ConfigOpVisitor rather than type switches, so adding
// a variant adds a visitor method and every consumer stops compiling
// until it handles the new case.
//
// # Identity
//
// Event IDs are content-addressed: SHA-256 with domain separation over
// RFC 8785 canonical JSON (see canonical.go and hash.go). Request IDs are
// assigned by the engine and are not part of the hashed content.
package dao
