package history

import "bytes"

// OrderChecker wraps a Source and fails once a key sorts before the key
// of the record produced just before it. Equal keys are allowed and
// counted.
type OrderChecker struct {
	src   Source
	name  string
	prev  []byte
	count int64
	dups  int64
}

// CheckOrder wraps src. name identifies the input in errors.
func CheckOrder(src Source, name string) *OrderChecker {
	return &OrderChecker{src: src, name: name}
}

// Read implements Source.
func (c *OrderChecker) Read(e *Entry) (bool, error) {
	ok, err := c.src.Read(e)
	if !ok || err != nil {
		return ok, err
	}
	c.count++

	key := e.Key()
	if c.count > 1 {
		switch bytes.Compare(key, c.prev) {
		case -1:
			return false, &OrderError{
				Source: c.name,
				Record: c.count,
				Prev:   string(c.prev),
				Key:    string(key),
			}
		case 0:
			c.dups++
		}
	}
	c.prev = append(c.prev[:0], key...)
	return true, nil
}

// Count returns the number of records read so far.
func (c *OrderChecker) Count() int64 {
	return c.count
}

// Duplicates returns how many records repeated the key of their
// predecessor.
func (c *OrderChecker) Duplicates() int64 {
	return c.dups
}
