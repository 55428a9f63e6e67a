package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/bjaus/csvstream"
)

// decodeRows reads JSON objects from r: either a stream of objects (JSON
// Lines or concatenated) or a single top-level array of objects. Key order is
// kept. The returned source reads r once.
func decodeRows(r io.Reader) csvstream.Source {
	return func(yield func(any, error) bool) {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		inArray, first := false, true
		for n := 1; ; n++ {
			if inArray && !dec.More() {
				if _, err := dec.Token(); err != nil {
					yield(nil, fmt.Errorf("close array: %w", err))
				}
				return
			}
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) && !inArray {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("row %d: %w", n, err))
				return
			}
			if first && tok == json.Delim('[') {
				inArray, first = true, false
				n--
				continue
			}
			first = false
			if tok != json.Delim('{') {
				yield(nil, fmt.Errorf("row %d: expected object, got %v", n, tok))
				return
			}
			rec, err := decodeObject(dec)
			if err != nil {
				yield(nil, fmt.Errorf("row %d: %w", n, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// decodeObject reads the members of an object whose opening brace has been
// consumed.
func decodeObject(dec *json.Decoder) (csvstream.Record, error) {
	var rec csvstream.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		rec = append(rec, csvstream.KeyValue{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

// scalar turns a raw JSON value into a row value. Nested objects and arrays
// stay as compact JSON text.
func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return nil, errors.New("empty value")
	case bytes.Equal(raw, []byte("null")):
		return nil, nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case raw[0] == '{' || raw[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	default:
		// numbers and booleans keep their literal text
		return string(raw), nil
	}
}

// fileRows re-opens path on every iteration, so it can be read more than once.
func fileRows(path string) csvstream.Source {
	return func(yield func(any, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()
		for v, err := range decodeRows(f) {
			if !yield(v, err) {
				return
			}
		}
	}
}

// cancelable stops src with the context error once ctx is done.
func cancelable(ctx context.Context, src csvstream.Source) csvstream.Source {
	return func(yield func(any, error) bool) {
		for v, err := range src {
			if cerr := ctx.Err(); cerr != nil {
				yield(nil, cerr)
				return
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
