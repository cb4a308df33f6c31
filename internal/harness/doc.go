// Package harness runs scripted bus scenarios and records what happened as
// a plain-text trace for golden file comparison.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: commit_reset_replay
//	description: "A committed record is not redelivered until reset"
//	partitions: 2
//	backend: local            # or sqlite; defaults to local
//	steps:
//	  - publish: {topic: t, key: AAPL, payload: {symbol: AAPL}}
//	    expect: {partition: 0, offset: 0}
//	  - subscribe: {group: g1, topic: t}
//	    expect: {count: 1}
//	  - commit: {group: g1}
//	  - reset: {group: g1, topic: t}
//	assertions:
//	  - type: committed
//	    group: g1
//	    topic: t
//	    partition: 0
//	    offset: 0
//
// A commit step commits every record the group's most recent subscribe step
// delivered. Steps may carry an expect clause; a mismatch fails the scenario
// without stopping it.
//
// # Assertion Types
//
//   - committed: the group's next offset for a partition after the last step
//   - trace_count: how many trace lines an operation produced
//
// # Determinism
//
// Every run starts from an empty bus in a fresh temporary directory (or an
// in-memory SQLite database), and payloads are written as key-sorted JSON, so
// the same scenario always yields the same trace.
package harness
