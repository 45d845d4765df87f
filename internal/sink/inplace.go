package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

// defaultPerm is used when the destination does not exist yet.
const defaultPerm fs.FileMode = 0o644

// PublishError reports that the staged output was complete but could not
// be renamed over the destination. The staged file is left in place so the
// finished export is not lost.
type PublishError struct {
	TempPath string
	Dest     string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v (finished output kept at %s)", e.Dest, e.Err, e.TempPath)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError returns true if err is or wraps a *PublishError.
func IsPublishError(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe)
}

// InPlace stages output in a temporary file in the destination's directory
// and renames it over the destination on Commit.
//
// The destination may be open for reading by the same process while the
// export runs; it is not touched until the rename.
type InPlace struct {
	dest string
	tmp  string
	f    *os.File
	bw   *bufio.Writer
	fin  finalizer
}

// CreateInPlace creates the staging file for dest.
// The staging file gets the destination's permission bits when it exists.
// A symlinked dest is resolved first, so the link's target is replaced and
// the link itself survives.
func CreateInPlace(dest string, size int) (*InPlace, error) {
	if resolved, err := filepath.EvalSymlinks(dest); err == nil {
		dest = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	perm := defaultPerm
	if fi, err := os.Stat(dest); err == nil {
		perm = fi.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat destination: %w", err)
	}

	tmp := TempPath(dest)
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	// OpenFile is subject to the umask.
	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("chmod staging file: %w", err)
	}

	return &InPlace{
		dest: dest,
		tmp:  tmp,
		f:    f,
		bw:   bufio.NewWriterSize(f, size),
	}, nil
}

// TempPath returns a fresh staging file name for dest: a hidden file in the
// same directory, so the final rename never crosses a filesystem.
func TempPath(dest string) string {
	dir, base := filepath.Split(dest)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}

// Dest returns the file Commit replaces, with symlinks resolved.
func (s *InPlace) Dest() string {
	return s.dest
}

// Path returns the staging file path.
func (s *InPlace) Path() string {
	return s.tmp
}

func (s *InPlace) Write(p []byte) (int, error) {
	if s.fin.done {
		return 0, os.ErrClosed
	}
	return s.bw.Write(p)
}

// Commit makes the staged output durable and renames it over the
// destination. The staging file is closed before the rename.
//
// If anything before the rename fails, the staging file is removed and the
// destination is untouched. If the rename fails, a *PublishError is
// returned and the staging file is kept. A directory sync failure after the
// rename is reported, but the new content is already in place.
func (s *InPlace) Commit() error {
	return s.fin.once(func() error {
		if err := s.stage(); err != nil {
			os.Remove(s.tmp)
			return err
		}
		if err := os.Rename(s.tmp, s.dest); err != nil {
			return &PublishError{TempPath: s.tmp, Dest: s.dest, Err: err}
		}
		if err := syncDirFunc(filepath.Dir(s.dest)); err != nil {
			return fmt.Errorf("published %s, but directory sync failed: %w", s.dest, err)
		}
		return nil
	})
}

// stage flushes, fsyncs and closes the staging file.
func (s *InPlace) stage() error {
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush staging file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	return nil
}

// Abort closes and deletes the staging file. The destination is untouched.
func (s *InPlace) Abort() error {
	return s.fin.once(func() error {
		closeErr := s.f.Close()
		if err := os.Remove(s.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove staging file: %w", err)
		}
		if closeErr != nil {
			return fmt.Errorf("close staging file: %w", closeErr)
		}
		return nil
	})
}

// syncDirFunc is replaced in tests.
var syncDirFunc = syncDir

// syncDir persists a rename in dir. Windows cannot fsync directories.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
