// Package bus is the local journaled event bus: a partitioned, append-only
// log with per-consumer-group offsets and replay.
//
// # Layout
//
// The file backend keeps the layout below stable so external exporters can
// read it directly:
//
//	<base>/data/journal/<topic>/partition-<p>.ndjson    one JSON record per line
//	<base>/.runtime/offsets/<group>/<topic>-<p>.json    {"offset": <next unread>}
//
// An offset is the zero-based line number of a record within its partition
// file. Offsets are never reused; Reset rewinds a group's read cursor, never
// the log.
//
// # Partitioning
//
// ChoosePartition hashes the key with SHA-256 and takes the first two bytes
// big-endian modulo the partition count. The empty key is not special-cased:
// it hashes like any other key, and sha256("") begins with 0xe3b0, so it
// always lands on EmptyKeyPartition(n) = 58288 % n (partition 0 for 2 or 4
// partitions).
//
// # Consumption
//
//	b, _ := bus.Open(base, 4)
//	env, _ := b.Publish("quotes.v1", "AAPL", quote)
//	for env, err := range b.Subscribe("g1", "quotes.v1") {
//	    if err != nil {
//	        return err
//	    }
//	    handle(env)
//	    _ = b.Commit("g1", env)
//	}
//
// Subscribe is a finite snapshot scan, not a tail. It never commits: a
// consumer that stops before Commit sees the same records again on the next
// Subscribe (at-least-once).
//
// # Concurrency
//
// Offset assignment counts the records already present, so the
// count-then-append step runs under one mutex per journal. The file journal
// also holds an exclusive OS file lock on the partition file while it
// appends, and readers take a shared lock while they capture the snapshot
// size, so several processes on one host can publish to the same partition.
// Counting costs O(partition size); the journal caches the count it last wrote
// together with the file size and only rescans when the size changed under it.
package bus
