// Package history defines the record flowing through an export and the
// cursor contract both record origins satisfy.
//
// A record is one line of the export format:
//
//	<KEY>\n
//	<KEY>\t<TITLE>\n
//
// where KEY is "<timestamp> <url>" and the timestamp is rendered by package
// timefmt. The key is the sort and dedup identity of a record; the title is
// carried along but never compared.
//
// # Sources
//
// A Source yields records in non-decreasing key order. Sources are pull
// based: the caller hands in an Entry and the source overwrites it. This
// lets the merge engine keep a fixed number of buffers alive no matter how
// large the inputs are.
//
// LineSource reads a previous export. The database-backed source lives in
// package places.
package history
