package csvstream

import "fmt"

// Discover returns the column names of the rows in data, in first-seen order.
// With scanAll false only the first row is inspected; otherwise the keys of
// every row are merged. Positional rows cannot name columns and yield
// ErrSchemaConflict. An empty collection yields no columns and no error.
//
// Discover reads data once. Sources that can only be iterated a single time
// will be consumed by it.
func Discover(data any, scanAll bool) ([]string, error) {
	src, err := rowsOf(data)
	if err != nil {
		return nil, err
	}
	return discover(src, scanAll)
}

func discover(src Source, scanAll bool) ([]string, error) {
	var cs columnSet
	i := 0
	for v, err := range src {
		i++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		r, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := cs.add(r, i); err != nil {
			return nil, err
		}
		if !scanAll {
			break
		}
	}
	return cs.names(), nil
}

// columnSet accumulates distinct column names in insertion order.
type columnSet struct {
	order []string
	seen  map[string]struct{}
}

func (cs *columnSet) add(r row, index int) error {
	if r.positional {
		return fmt.Errorf("%w: row %d is positional; non-associative rows cannot be used for column discovery", ErrSchemaConflict, index)
	}
	if cs.seen == nil {
		cs.seen = make(map[string]struct{}, len(r.keys))
	}
	for _, k := range r.keys {
		if _, ok := cs.seen[k]; ok {
			continue
		}
		cs.seen[k] = struct{}{}
		cs.order = append(cs.order, k)
	}
	return nil
}

func (cs *columnSet) names() []string {
	if cs.order == nil {
		return []string{}
	}
	return cs.order
}
