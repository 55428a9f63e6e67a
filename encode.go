package csvstream

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// EncodeLine encodes fields as a single CSV line terminated by "\n".
//
// A field is wrapped in the enclosure when it contains the delimiter, the
// enclosure, a carriage return or a line feed. Enclosures inside a wrapped
// field are doubled, except directly after the escape character, which
// already protects them. An escape of 0 disables escaping.
func EncodeLine(fields []string, delimiter, enclosure, escape rune) []byte {
	return AppendLine(nil, fields, delimiter, enclosure, escape)
}

// AppendLine is like [EncodeLine] but appends to dst and returns the
// extended buffer.
func AppendLine(dst []byte, fields []string, delimiter, enclosure, escape rune) []byte {
	if escape == enclosure {
		escape = 0
	}
	for i, field := range fields {
		if i > 0 {
			dst = utf8.AppendRune(dst, delimiter)
		}
		dst = appendField(dst, field, delimiter, enclosure, escape)
	}
	return append(dst, '\n')
}

func appendField(dst []byte, field string, delimiter, enclosure, escape rune) []byte {
	if !fieldNeedsQuote(field, delimiter, enclosure) {
		return append(dst, field...)
	}
	dst = utf8.AppendRune(dst, enclosure)
	escaped := false
	for _, r := range field {
		switch {
		case escape != 0 && r == escape:
			escaped = true
		case !escaped && r == enclosure:
			dst = utf8.AppendRune(dst, enclosure)
		default:
			escaped = false
		}
		dst = utf8.AppendRune(dst, r)
	}
	return utf8.AppendRune(dst, enclosure)
}

func fieldNeedsQuote(field string, delimiter, enclosure rune) bool {
	return strings.ContainsFunc(field, func(r rune) bool {
		return r == delimiter || r == enclosure || r == '\r' || r == '\n'
	})
}

// lineWriter encodes lines into w using a reused scratch buffer.
type lineWriter struct {
	w                            io.Writer
	delimiter, enclosure, escape rune
	buf                          []byte
}

func newLineWriter(w io.Writer, cfg Config) *lineWriter {
	return &lineWriter{
		w:         w,
		delimiter: rune(cfg.Delimiter),
		enclosure: rune(cfg.Enclosure),
		escape:    rune(cfg.Escape),
		buf:       make([]byte, 0, 512),
	}
}

// put writes one encoded line. Short writes count as failures.
func (lw *lineWriter) put(fields []string) (int, error) {
	lw.buf = AppendLine(lw.buf[:0], fields, lw.delimiter, lw.enclosure, lw.escape)
	n, err := lw.w.Write(lw.buf)
	if err == nil && n < len(lw.buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, fmt.Errorf("%w: failed to write CSV data: %w", ErrWriteFailure, err)
	}
	return n, nil
}
