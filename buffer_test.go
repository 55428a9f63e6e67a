package csvstream_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/csvstream"
)

func TestBufferInMemory(t *testing.T) {
	t.Parallel()
	b := csvstream.NewBuffer(1024, t.TempDir())
	defer b.Close()

	_, err := b.WriteString("hello ")
	require.NoError(t, err)
	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	assert.False(t, b.Spilled())
	assert.Empty(t, b.Name())
	assert.Equal(t, int64(11), b.Len())

	require.NoError(t, b.Rewind())
	out, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestBufferSpill(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	b := csvstream.NewBuffer(10, dir)

	_, err := b.WriteString("xxxxxx")
	require.NoError(t, err)
	assert.False(t, b.Spilled())

	_, err = b.WriteString("yyyyyy")
	require.NoError(t, err)
	require.True(t, b.Spilled())
	assert.Equal(t, dir, filepath.Dir(b.Name()))

	_, err = b.WriteString("zz")
	require.NoError(t, err)
	assert.Equal(t, int64(14), b.Len())

	require.NoError(t, b.Rewind())
	out, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "xxxxxxyyyyyyzz", string(out))

	name := b.Name()
	require.NoError(t, b.Close())
	_, err = os.Stat(name)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBufferZeroThresholdSpillsImmediately(t *testing.T) {
	t.Parallel()
	b := csvstream.NewBuffer(0, t.TempDir())
	defer b.Close()

	_, err := b.Write(nil)
	require.NoError(t, err)
	assert.False(t, b.Spilled())

	_, err = b.WriteString("a")
	require.NoError(t, err)
	assert.True(t, b.Spilled())
}

func TestBufferWritesDoNotMoveCursor(t *testing.T) {
	t.Parallel()
	for name, threshold := range map[string]int64{"memory": 1024, "file": 0} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := csvstream.NewBuffer(threshold, t.TempDir())
			defer b.Close()

			_, err := b.WriteString("abc")
			require.NoError(t, err)
			require.NoError(t, b.Rewind())

			p := make([]byte, 2)
			n, err := b.Read(p)
			require.NoError(t, err)
			assert.Equal(t, "ab", string(p[:n]))

			_, err = b.WriteString("def")
			require.NoError(t, err)

			rest, err := io.ReadAll(b)
			require.NoError(t, err)
			assert.Equal(t, "cdef", string(rest))
		})
	}
}

func TestBufferSeek(t *testing.T) {
	t.Parallel()
	b := csvstream.NewBuffer(1024, t.TempDir())
	defer b.Close()
	_, err := b.WriteString("0123456789")
	require.NoError(t, err)

	pos, err := b.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)
	out, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "789", string(out))

	_, err = b.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	_, err = b.Seek(0, 42)
	assert.Error(t, err)
}

func TestBufferWriteTo(t *testing.T) {
	t.Parallel()
	for name, threshold := range map[string]int64{"memory": 1024, "file": 4} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := csvstream.NewBuffer(threshold, t.TempDir())
			defer b.Close()
			_, err := b.WriteString(strings.Repeat("ab", 8))
			require.NoError(t, err)

			var out bytes.Buffer
			n, err := b.WriteTo(&out)
			require.NoError(t, err)
			assert.Equal(t, int64(16), n)
			assert.Equal(t, strings.Repeat("ab", 8), out.String())

			n, err = b.WriteTo(&out)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestBufferClosed(t *testing.T) {
	t.Parallel()
	b := csvstream.NewBuffer(0, t.TempDir())
	_, err := b.WriteString("data")
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.WriteString("more")
	assert.ErrorIs(t, err, csvstream.ErrClosed)
	_, err = b.Read(make([]byte, 4))
	assert.ErrorIs(t, err, csvstream.ErrClosed)
	assert.ErrorIs(t, b.Rewind(), csvstream.ErrClosed)
	_, err = b.WriteTo(io.Discard)
	assert.ErrorIs(t, err, csvstream.ErrClosed)
}

func TestBufferSpillFailure(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	b := csvstream.NewBuffer(1, missing)
	defer b.Close()

	_, err := b.WriteString("too long")
	assert.Error(t, err)
	assert.False(t, b.Spilled())
	assert.Zero(t, b.Len())
}

func TestFormatSpillFailure(t *testing.T) {
	t.Parallel()
	f := newFormatter(t, func(c *csvstream.Config) {
		c.MaxMemory = 1
		c.TempDir = filepath.Join(c.TempDir, "does-not-exist")
	})
	buf, err := f.Format(sparseRows())
	assert.ErrorIs(t, err, csvstream.ErrWriteFailure)
	assert.Nil(t, buf)
}
