package history

// Source is a pull-based cursor over records in non-decreasing key order.
//
// Read overwrites e with the next record and reports whether one was
// produced. Exhaustion is (false, nil), not an error. Any returned error is
// fatal to the caller; Sources do not skip bad records.
type Source interface {
	Read(e *Entry) (bool, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(e *Entry) (bool, error)

// Read calls f(e).
func (f SourceFunc) Read(e *Entry) (bool, error) {
	return f(e)
}

// Empty is a Source with no records. It stands in for an absent merge file.
var Empty Source = SourceFunc(func(*Entry) (bool, error) { return false, nil })

// Lines returns a Source that yields the given lines in order.
// A newline is appended to each line that lacks one.
func Lines(lines ...string) Source {
	i := 0
	return SourceFunc(func(e *Entry) (bool, error) {
		if i >= len(lines) {
			return false, nil
		}
		e.Reset()
		e.AppendString(lines[i])
		if l := lines[i]; len(l) == 0 || l[len(l)-1] != '\n' {
			e.Append('\n')
		}
		i++
		return true, nil
	})
}
