// Package harness runs scenario files against a fresh in-memory store.
//
// A scenario is a YAML description of service operations and the outcome
// each should have, followed by assertions on the recorded trace and on
// the final contents of the store. Scenarios are how the behavioural
// guarantees of the record hierarchy (cascade delete, ungrouped listing,
// copy and paste, the save gate) are pinned down as data.
//
// # Scenario Format
//
//	name: cascade_delete
//	description: "Deleting a project deletes its records"
//	setup:
//	  - action: create_project
//	    args: { name: Spring }
//	  - action: save_record
//	    args: { name: r1, project: 1 }
//	flow:
//	  - invoke: delete_project
//	    args: { id: 1 }
//	    expect:
//	      case: ok
//	      result: { records_deleted: 1 }
//	assertions:
//	  - type: row_count
//	    table: records
//	    count: 0
//
// Setup steps must succeed. Flow steps report an output case: "ok", or the
// code of the error the operation returned (NOT_FOUND, VALIDATION_FAILED,
// EMPTY_NAME, ...).
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: exactly one row of a table matches where, with the
//     expected field values
//   - row_count: exactly N rows of a table match where
//
// Tables are "projects" (id, name) and "records" (id, name, project_id,
// pages, date).
//
// # Deterministic Testing
//
// The store and the service share a testutil.DeterministicClock, so store
// IDs, timestamps and traces are identical across runs and can be compared
// with golden files.
package harness
