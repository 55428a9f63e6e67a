package csvstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Buffer is a write-then-read stream. It holds data in memory until the
// threshold is exceeded, then moves everything into a temporary file and keeps
// writing there. Callers see the same contract either way.
//
// A Buffer is not safe for concurrent use. Close removes the temporary file.
type Buffer struct {
	threshold int64
	dir       string

	mem    bytes.Buffer
	file   *os.File
	size   int64
	off    int64
	closed bool

	onSpill func(path string, size int64)
}

// NewBuffer returns an empty Buffer that spills to a file in dir once more
// than threshold bytes are written. An empty dir uses os.TempDir.
func NewBuffer(threshold int64, dir string) *Buffer {
	return &Buffer{threshold: threshold, dir: dir}
}

// Write appends p to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.file == nil && b.size+int64(len(p)) > b.threshold {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}
	var (
		n   int
		err error
	)
	if b.file != nil {
		n, err = b.file.WriteAt(p, b.size)
	} else {
		n, err = b.mem.Write(p)
	}
	b.size += int64(n)
	return n, err
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *Buffer) spill() error {
	f, err := os.CreateTemp(b.dir, "csvstream-*.csv")
	if err != nil {
		return fmt.Errorf("create spill file: %w", err)
	}
	if _, err := f.Write(b.mem.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("spill to %s: %w", f.Name(), err)
	}
	b.file = f
	b.mem = bytes.Buffer{}
	if b.onSpill != nil {
		b.onSpill(f.Name(), b.size)
	}
	return nil
}

// Rewind moves the read cursor to the start of the written data.
func (b *Buffer) Rewind() error {
	_, err := b.Seek(0, io.SeekStart)
	return err
}

// Seek sets the read cursor. Writes always append at the end and do not move
// the cursor.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.off + offset
	case io.SeekEnd:
		abs = b.size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position %d", abs)
	}
	b.off = abs
	return abs, nil
}

// Read reads from the current cursor position.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.off >= b.size {
		return 0, io.EOF
	}
	var (
		n   int
		err error
	)
	if b.file != nil {
		n, err = b.file.ReadAt(p, b.off)
		if errors.Is(err, io.EOF) && n > 0 {
			err = nil
		}
	} else {
		n = copy(p, b.mem.Bytes()[b.off:])
	}
	b.off += int64(n)
	return n, err
}

// WriteTo writes the data after the cursor to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.off >= b.size {
		return 0, nil
	}
	var (
		n   int64
		err error
	)
	if b.file != nil {
		n, err = io.Copy(w, io.NewSectionReader(b.file, b.off, b.size-b.off))
	} else {
		var m int
		m, err = w.Write(b.mem.Bytes()[b.off:])
		n = int64(m)
	}
	b.off += n
	return n, err
}

// Len returns the total number of bytes written.
func (b *Buffer) Len() int64 { return b.size }

// Spilled reports whether the data lives in a temporary file.
func (b *Buffer) Spilled() bool { return b.file != nil }

// Name returns the path of the temporary file, or "" while in memory.
func (b *Buffer) Name() string {
	if b.file == nil {
		return ""
	}
	return b.file.Name()
}

// Close releases the buffer and removes its temporary file. Calling Close
// more than once is a no-op.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = bytes.Buffer{}
	if b.file == nil {
		return nil
	}
	name := b.file.Name()
	err := b.file.Close()
	if rerr := os.Remove(name); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		err = errors.Join(err, rerr)
	}
	return err
}
