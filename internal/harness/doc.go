// Package harness runs reconciliation scenarios against a local ledger.
//
// A scenario seeds a fresh SQLite ledger, then runs one or more passes of
// the engine over a catalog, each as a separate invocation of the
// reconciler with its own proposer and approver. Every pass records its
// report entries and the operations it buffered into a trace; assertions
// then check the trace and the final ledger state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: path/to/catalog
//	events: path/to/events.yaml
//	ledger:
//	  accounts:
//	    - {id: "1.2.7", name: init0, witness: true}
//	passes:
//	  - proposer: init0
//	    broadcast: true
//	    expect:
//	      states: {CREATE_SUBMITTED: 25}
//	assertions:
//	  - type: trace_contains
//	    op: event_create
//	    fields: {start_time: "2026-03-02T01:00:00"}
//	  - type: final_state
//	    kind: sport
//	    count: 1
//
// Catalog and events paths are relative to the scenario file.
//
// # Assertion Types
//
//   - trace_contains: an operation with matching fields was buffered
//   - trace_order: operations were first buffered in the given order
//   - trace_count: an operation was buffered exactly N times
//   - final_state: ledger objects of a kind match the given fields
//   - pending_proposals: the number of pending proposals at the authority
//
// # Deterministic Testing
//
// Passes run with a manual clock and fixed pass ids, so the trace of a
// scenario is identical across runs and can be compared against a golden
// snapshot. Transaction ids are salted and never enter the trace.
package harness
