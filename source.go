package csvstream

import (
	"fmt"
	"iter"
	"reflect"
)

// Source is a row source that may fail part way through, such as a
// database cursor or a decoder. A yielded error aborts the format operation.
type Source = iter.Seq2[any, error]

// FromChan adapts a channel into a row source. The source is single-pass.
func FromChan[T any](ch <-chan T) Source {
	return func(yield func(any, error) bool) {
		for item := range ch {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// FromSlice adapts a typed slice into a row source.
func FromSlice[T any](items []T) Source {
	return func(yield func(any, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// FromSeq adapts an infallible iterator into a row source.
func FromSeq[T any](seq iter.Seq[T]) Source {
	return func(yield func(any, error) bool) {
		for item := range seq {
			if !yield(item, nil) {
				return
			}
		}
	}
}

var (
	sourceType = reflect.TypeFor[Source]()
	seqType    = reflect.TypeFor[iter.Seq[any]]()
	errorType  = reflect.TypeFor[error]()
)

// rowsOf resolves data into a row source. Data that cannot be iterated is
// rejected with ErrInvalidInput.
func rowsOf(data any) (Source, error) {
	switch t := data.(type) {
	case nil:
		return nil, fmt.Errorf("%w: data must be iterable, got nil", ErrInvalidInput)
	case Source:
		if t == nil {
			return nil, fmt.Errorf("%w: nil source", ErrInvalidInput)
		}
		return t, nil
	case iter.Seq[any]:
		if t == nil {
			return nil, fmt.Errorf("%w: nil iterator", ErrInvalidInput)
		}
		return FromSeq(t), nil
	case []any:
		return FromSlice(t), nil
	case []Record:
		return FromSlice(t), nil
	case []map[string]any:
		return FromSlice(t), nil
	case Record, map[string]any:
		// a single row is not a collection of rows
		return nil, fmt.Errorf("%w: data must be iterable, got single row %T", ErrInvalidInput, data)
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Func:
		// func literals and typed iterators such as iter.Seq[Record]
		switch {
		case rv.IsNil():
		case rv.Type().ConvertibleTo(sourceType):
			return rv.Convert(sourceType).Interface().(Source), nil
		case rv.Type().ConvertibleTo(seqType):
			return FromSeq(rv.Convert(seqType).Interface().(iter.Seq[any])), nil
		default:
			if src, ok := reflectSeq(rv); ok {
				return src, nil
			}
		}
	case reflect.Slice, reflect.Array:
		return func(yield func(any, error) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface(), nil) {
					return
				}
			}
		}, nil
	case reflect.Chan:
		if rv.Type().ChanDir()&reflect.RecvDir == 0 {
			break
		}
		return func(yield func(any, error) bool) {
			for {
				v, ok := rv.Recv()
				if !ok {
					return
				}
				if !yield(v.Interface(), nil) {
					return
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: data must be iterable, got %T", ErrInvalidInput, data)
}

// reflectSeq adapts fn when it has the shape of iter.Seq[T] or
// iter.Seq2[T, error] for some T.
func reflectSeq(fn reflect.Value) (Source, bool) {
	ft := fn.Type()
	if ft.NumIn() != 1 || ft.NumOut() != 0 || ft.IsVariadic() {
		return nil, false
	}
	yt := ft.In(0)
	if yt.Kind() != reflect.Func || yt.IsVariadic() || yt.NumOut() != 1 || yt.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	switch {
	case yt.NumIn() == 1:
	case yt.NumIn() == 2 && yt.In(1) == errorType:
	default:
		return nil, false
	}
	return func(yield func(any, error) bool) {
		adapter := reflect.MakeFunc(yt, func(args []reflect.Value) []reflect.Value {
			var err error
			if len(args) == 2 && !args[1].IsNil() {
				err = args[1].Interface().(error)
			}
			more := yield(args[0].Interface(), err)
			return []reflect.Value{reflect.ValueOf(more).Convert(yt.Out(0))}
		})
		fn.Call([]reflect.Value{adapter})
	}, true
}
