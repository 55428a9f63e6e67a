package csvstream

import (
	"cmp"
	"database/sql/driver"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"time"
)

// KeyValue is a single named field of a row.
type KeyValue struct {
	Key   string
	Value any
}

// Record is a row with named fields in a fixed order.
type Record []KeyValue

// Pairs returns the record itself, so a Record is [Mappable].
func (r Record) Pairs() []KeyValue { return r }

// Get returns the value stored under key and whether the key is present.
// When a key occurs more than once the first occurrence wins.
func (r Record) Get(key string) (any, bool) {
	for _, kv := range r {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Mappable converts a row value into ordered key-value form. Rows that
// implement it are normalized before their fields are read.
type Mappable interface {
	Pairs() []KeyValue
}

// row is the normalized shape of a single input row. Positional rows carry
// values only.
type row struct {
	keys       []string
	values     []any
	positional bool
}

// lookup returns the value for key. Duplicate keys resolve to the first one.
func (r *row) lookup(key string) (any, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return nil, false
}

func normalize(v any) (row, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return row{}, fmt.Errorf("%w: row is a nil %T", ErrInvalidInput, v)
	}
	switch t := v.(type) {
	case Mappable:
		return fromPairs(t.Pairs()), nil
	case []KeyValue:
		return fromPairs(t), nil
	case map[string]any:
		return fromMap(t), nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return fromMap(m), nil
	case []any:
		return row{values: t, positional: true}, nil
	case []string:
		values := make([]any, len(t))
		for i, s := range t {
			values[i] = s
		}
		return row{values: values, positional: true}, nil
	default:
		return reflectRow(v)
	}
}

var pairsType = reflect.TypeFor[[]KeyValue]()

// reflectRow handles typed maps and sequences. String keys name columns.
// Integer keys only give an order, so such maps are positional.
func reflectRow(v any) (row, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		switch {
		case kt.Kind() == reflect.String:
			m := make(map[string]any, rv.Len())
			it := rv.MapRange()
			for it.Next() {
				m[it.Key().String()] = it.Value().Interface()
			}
			return fromMap(m), nil
		case isIntKind(kt.Kind()):
			keys := rv.MapKeys()
			slices.SortFunc(keys, func(a, b reflect.Value) int {
				if a.CanInt() {
					return cmp.Compare(a.Int(), b.Int())
				}
				return cmp.Compare(a.Uint(), b.Uint())
			})
			values := make([]any, len(keys))
			for i, k := range keys {
				values[i] = rv.MapIndex(k).Interface()
			}
			return row{values: values, positional: true}, nil
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().ConvertibleTo(pairsType) {
			return fromPairs(rv.Convert(pairsType).Interface().([]KeyValue)), nil
		}
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return row{values: values, positional: true}, nil
	}
	return row{}, fmt.Errorf("%w: row of type %T is neither a mapping nor a sequence", ErrInvalidInput, v)
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func fromPairs(pairs []KeyValue) row {
	r := row{
		keys:   make([]string, len(pairs)),
		values: make([]any, len(pairs)),
	}
	for i, kv := range pairs {
		r.keys[i] = kv.Key
		r.values[i] = kv.Value
	}
	return r
}

// fromMap orders keys lexically since Go maps carry no order.
func fromMap(m map[string]any) row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return row{keys: keys, values: values}
}

// isNull reports whether v is an absence-of-value marker.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
	}
	if dv, ok := v.(driver.Valuer); ok {
		inner, err := dv.Value()
		return err == nil && inner == nil
	}
	return false
}

// stringify renders a non-null value as a CSV field.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil {
			return err.Error()
		}
		return stringify(inner)
	default:
		return fmt.Sprint(v)
	}
}
