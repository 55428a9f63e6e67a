package csvstream

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
)

// Response is the part of a host framework's response object the formatter
// works with: the data to format, the headers, and the body stream.
type Response interface {
	Data() any
	Header() http.Header
	SetStream(io.ReadCloser)
}

// ResponseFormatter formats a response in place.
type ResponseFormatter interface {
	FormatResponse(Response) error
}

// FormatResponse formats the response data and, on success only, sets the
// Content-Type header and hands the rewound stream to the response. The
// response takes ownership of the stream.
func (f *Formatter) FormatResponse(resp Response) error {
	buf, err := f.Format(resp.Data())
	if err != nil {
		return err
	}
	resp.Header().Set("Content-Type", ContentType)
	resp.SetStream(buf)
	return nil
}

// WriteHTTP formats data and copies it to w with the CSV content type. The
// status code is only committed once formatting succeeded.
func (f *Formatter) WriteHTTP(w http.ResponseWriter, data any) error {
	buf, err := f.Format(data)
	if err != nil {
		return err
	}
	defer buf.Close()
	w.Header().Set("Content-Type", ContentType)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("%w: copy response: %w", ErrWriteFailure, err)
	}
	return nil
}

// Registry maps format identifiers to response formatters, so a dispatcher
// can pick one from a requested output format.
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]ResponseFormatter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[Format]ResponseFormatter)}
}

// Register adds or replaces the formatter for id.
func (r *Registry) Register(id Format, rf ResponseFormatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[id] = rf
}

// Lookup returns the formatter registered for id.
func (r *Registry) Lookup(id Format) (ResponseFormatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rf, ok := r.formatters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, id)
	}
	return rf, nil
}

// Formats returns the registered identifiers in sorted order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.formatters))
	for id := range r.formatters {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ParseFormat converts a requested format name into a registered Format.
func (r *Registry) ParseFormat(s string) (Format, error) {
	id := Format(s)
	if _, err := r.Lookup(id); err != nil {
		return "", err
	}
	return id, nil
}

// FormatResponse formats resp with the formatter registered for id.
func (r *Registry) FormatResponse(id Format, resp Response) error {
	rf, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return rf.FormatResponse(resp)
}
