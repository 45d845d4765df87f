// Package sink provides the destinations an export can be written to.
//
// Every destination is a Sink: an io.Writer that is finalized with exactly
// one of Commit (the export succeeded) or Abort (it failed). The variant is
// picked once, from validated configuration, by Open:
//
//   - ModeStdout: buffered writes to standard output
//   - ModeFile: buffered writes to a newly created file
//   - ModeInPlace: writes are staged in a temporary file next to the
//     destination and renamed over it on Commit
//
// Stdout and file output may be left partially written when an export
// fails. In-place output never is: until Commit renames the staged file,
// the destination keeps its previous bytes, and Abort deletes the staged
// file.
package sink
