package csvstream

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Formatter turns row collections into CSV. It is safe to share between
// goroutines; each call works on its own output stream.
type Formatter struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(f *Formatter) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records every format operation in m.
func WithMetrics(m *Metrics) Option {
	return func(f *Formatter) {
		f.metrics = m
	}
}

// New returns a Formatter for cfg. The configuration is validated and copied.
func New(cfg Config, opts ...Option) (*Formatter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Columns = slices.Clone(cfg.Columns)
	f := &Formatter{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Config returns a copy of the formatter's configuration.
func (f *Formatter) Config() Config {
	cfg := f.cfg
	cfg.Columns = slices.Clone(cfg.Columns)
	return cfg
}

// Format writes data as CSV into a new [Buffer] and returns it rewound to
// the start. data must be iterable: a slice or array, a receive channel,
// an iter.Seq[any], or a [Source]. Anything else fails with ErrInvalidInput
// before any output is produced.
//
// On error no stream is returned and any temporary file is removed. On
// success the caller owns the Buffer and must Close it.
func (f *Formatter) Format(data any) (*Buffer, error) {
	src, err := rowsOf(data)
	if err != nil {
		f.metrics.observe(0, 0, false, 0, err)
		return nil, err
	}
	return f.FormatSource(src)
}

// FormatSeq is like [Formatter.Format] for an iterator of rows.
func (f *Formatter) FormatSeq(seq iter.Seq[any]) (*Buffer, error) {
	if seq == nil {
		return f.Format(nil)
	}
	return f.FormatSource(FromSeq(seq))
}

// FormatSource is like [Formatter.Format] for a source that may fail. The
// first error it yields aborts the operation.
func (f *Formatter) FormatSource(src Source) (*Buffer, error) {
	if src == nil {
		return f.Format(nil)
	}
	log := f.logger.With(zap.String("format_id", uuid.NewString()))
	start := time.Now()

	buf := NewBuffer(f.cfg.MaxMemory, f.cfg.TempDir)
	buf.onSpill = func(path string, size int64) {
		log.Debug("output spilled to temporary file",
			zap.String("path", path),
			zap.Int64("bytes", size),
			zap.Int64("max_memory", f.cfg.MaxMemory),
		)
	}

	rows, err := f.run(buf, src)
	if err == nil {
		if rerr := buf.Rewind(); rerr != nil {
			err = fmt.Errorf("%w: rewind: %w", ErrWriteFailure, rerr)
		}
	}
	elapsed := time.Since(start)
	f.metrics.observe(rows, buf.Len(), buf.Spilled(), elapsed, err)

	if err != nil {
		if cerr := buf.Close(); cerr != nil {
			log.Warn("failed to release output stream", zap.Error(cerr))
		}
		log.Debug("format failed", zap.Int("rows", rows), zap.Error(err))
		return nil, err
	}
	log.Debug("format complete",
		zap.Int("rows", rows),
		zap.Int64("bytes", buf.Len()),
		zap.Bool("spilled", buf.Spilled()),
		zap.Duration("elapsed", elapsed),
	)
	return buf, nil
}

// Write formats data straight into w without an intermediate stream. Output
// already written to w when an error occurs must be discarded by the caller.
func (f *Formatter) Write(w io.Writer, data any) error {
	start := time.Now()
	src, err := rowsOf(data)
	if err != nil {
		f.metrics.observe(0, 0, false, 0, err)
		return err
	}
	cw := &countingWriter{w: w}
	rows, err := f.run(cw, src)
	f.metrics.observe(rows, cw.n, false, time.Since(start), err)
	return err
}

// Marshal formats data and returns the bytes.
func (f *Formatter) Marshal(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// run writes the optional header and one line per row to w. It returns the
// number of data rows written.
func (f *Formatter) run(w io.Writer, src Source) (int, error) {
	lw := newLineWriter(w, f.cfg)

	var (
		columns    []string
		mapped     bool // rows are aligned to columns
		discovered bool // columns came from the rows themselves
		pending    bool // columns come from the first row
	)
	switch {
	case len(f.cfg.Columns) > 0:
		columns, mapped = f.cfg.Columns, true
		if f.cfg.IncludeHeader {
			if _, err := lw.put(columns); err != nil {
				return 0, err
			}
		}
	case f.cfg.IncludeHeader && f.cfg.CheckAllRows:
		cols, err := discover(src, true)
		if err != nil {
			return 0, err
		}
		columns, mapped, discovered = cols, true, true
		if len(columns) > 0 {
			if _, err := lw.put(columns); err != nil {
				return 0, err
			}
		}
	case f.cfg.IncludeHeader:
		mapped, discovered, pending = true, true, true
	}

	var fields []string
	n := 0
	for v, err := range src {
		if err != nil {
			return n, fmt.Errorf("read row %d: %w", n+1, err)
		}
		r, err := normalize(v)
		if err != nil {
			return n, fmt.Errorf("row %d: %w", n+1, err)
		}
		if pending {
			var cs columnSet
			if err := cs.add(r, n+1); err != nil {
				return n, err
			}
			// keyless first row: no header, and later rows align to nothing
			columns, pending = cs.names(), false
			if len(columns) > 0 {
				if _, err := lw.put(columns); err != nil {
					return n, err
				}
			}
		}
		if mapped {
			fields, err = f.align(fields[:0], r, columns, discovered, n+1)
			if err != nil {
				return n, err
			}
		} else {
			fields = f.passThrough(fields[:0], r)
		}
		if _, err := lw.put(fields); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// align renders r against columns. Absent keys become MissingValue and nil
// values become NullValue. Positional rows line up by index, which only makes
// sense for columns the caller fixed up front.
func (f *Formatter) align(dst []string, r row, columns []string, discovered bool, index int) ([]string, error) {
	if r.positional {
		if discovered {
			return nil, fmt.Errorf("%w: row %d is positional but columns were discovered by name", ErrSchemaConflict, index)
		}
		for i := range columns {
			if i >= len(r.values) {
				dst = append(dst, f.cfg.MissingValue)
				continue
			}
			dst = append(dst, f.field(r.values[i]))
		}
		return dst, nil
	}
	for _, col := range columns {
		v, ok := r.lookup(col)
		if !ok {
			dst = append(dst, f.cfg.MissingValue)
			continue
		}
		dst = append(dst, f.field(v))
	}
	return dst, nil
}

// passThrough renders the row's own values in order.
func (f *Formatter) passThrough(dst []string, r row) []string {
	for _, v := range r.values {
		dst = append(dst, f.field(v))
	}
	return dst
}

func (f *Formatter) field(v any) string {
	if isNull(v) {
		return f.cfg.NullValue
	}
	return stringify(v)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
