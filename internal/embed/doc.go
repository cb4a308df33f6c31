// Package embed is the deterministic hashing embedder shared by indexing and
// search.
//
// Text is lower-cased and split into maximal runs of [A-Za-z0-9_]. Every
// token increments one bucket of a fixed-width vector, chosen by hashing the
// token, and the result is L2-normalized. There is no model and no state:
// the same text and dimension always produce the same vector, across
// processes and machines.
//
// Two bucket hashes are available. SHA1 (the first two digest bytes,
// big-endian, modulo the dimension) is the default and matches vectors
// already stored in index sidecars. Highway uses 64-bit HighwayHash with a
// fixed key; vectors built with it are not comparable with SHA1 vectors.
package embed
