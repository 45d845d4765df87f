// Package merge combines fresh history records with a previous export.
//
// Merge pulls from two key-ordered sources, interleaves them in key order
// and writes each key at most once. Within a run of records sharing a key
// the first one in merge order survives; on a tie between the sources the
// previous export is offered first, so a re-export never replaces a title
// that was already committed.
//
// The engine holds three record buffers, one lookahead per source and the
// last written record, regardless of input size. Accepted records are
// written immediately; there is no flush step at end of stream.
package merge
