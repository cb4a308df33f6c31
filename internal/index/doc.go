// Package index is the hybrid lexical and vector search index over short
// text documents such as news headlines.
//
// Documents are embedded when they are added and kept in insertion order.
// Persist writes two position-aligned sidecars under the index base:
//
//	meta.jsonl   one {"id":...,"text":...,"meta":{...}} object per line
//	vecs.jsonl   one JSON array of floats per line
//
// Line i of each file describes the same document. Both files are encoded
// from one in-memory snapshot before either is written, and Load refuses a
// pair whose line counts differ.
//
// Search scores every document as
//
//	alpha*cosine(embed(query), vec) + (1-alpha)*overlap(doc, query)
//
// where overlap is the share of distinct query tokens that also occur in the
// document. Ties keep insertion order.
//
// The base may be a local directory or any URL understood by
// github.com/viant/afs. A HybridIndex does no locking of its own.
package index
