// Package harness runs scripted governance scenarios against a real
// engine and checks the resulting trace and state.
//
// Each run gets a fresh in-memory store, a ledger custodian, a manual
// clock starting at testutil.Genesis and sequential request ids, so the
// trace of a scenario is reproducible byte for byte and can be compared
// against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fee: { recipient: fee-sink, amount: 5 }   # optional
//	daos:
//	  - id: council                            # genesis document
//	    authority: root
//	    treasury: council-treasury
//	    governance_token: GOV
//	    stake_vault: council-stakes
//	    signers: [A, B, C]
//	    approval_threshold: 2
//	    vote_duration: 86400
//	    pass_percentage: 60
//	setup:
//	  - { owner: council-treasury, asset: SOL, amount: 1000 }
//	flow:
//	  - invoke: approve
//	    as: A
//	    args: { proposal: 1 }
//	    expect: { case: ok, events: [ProposalApproved] }
//	  - advance: 86400                         # seconds, before the step
//	    invoke: claim
//	    as: dev
//	    expect: { case: ClaimTooEarly }
//	assertions:
//	  - type: trace_contains
//	    action: approve
//	    args: { proposal: 1 }
//	  - type: balance
//	    owner: vendor
//	    asset: SOL
//	    amount: 400
//	  - type: final_state
//	    table: proposals
//	    where: { dao_id: council, id: 1 }
//	    expect: { executed: 1 }
//	  - type: audit_clean
//	    dao: council
//
// # Trace
//
// The trace interleaves, per flow step, the invocation, its completion
// (outcome "ok" or the error code) and the events the step appended.
// Events from DAO initialization are traced under step 0. Golden files
// hold one canonical JSON object per trace entry.
package harness
