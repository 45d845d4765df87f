// Package timefmt renders visit timestamps in the fixed-width form used as
// the leading part of every export key.
//
// The layout is "YYYY-MM-DD HH:MM:SS.mmmZ" in UTC. Every field is zero padded
// and sub-millisecond precision is truncated, so for any two timestamps in
// years 0000-9999, t1 < t2 implies Micros(t1) <= Micros(t2) under byte
// comparison. The merge engine relies on this to compare keys as opaque
// bytes.
package timefmt

import "time"

// Layout is the time.Format layout of an export timestamp.
const Layout = "2006-01-02 15:04:05.000Z"

// Width is the length in bytes of a formatted timestamp.
const Width = len(Layout)

// AppendMicros appends the formatted form of usec, microseconds since the
// Unix epoch, to dst and returns the extended buffer.
func AppendMicros(dst []byte, usec int64) []byte {
	return time.UnixMicro(usec).UTC().AppendFormat(dst, Layout)
}

// Micros returns the formatted form of usec.
func Micros(usec int64) string {
	return string(AppendMicros(make([]byte, 0, Width), usec))
}
