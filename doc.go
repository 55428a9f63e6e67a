// Package csvstream serializes collections of rows into CSV streams.
//
// Rows may be ordered records, plain maps, positional slices, or any value
// implementing [Mappable]. Rows do not need to share a shape: columns are
// discovered from the data and fields a row lacks are filled with a
// placeholder. Output is buffered in memory and moves to a temporary file
// once it grows past a threshold, so large collections do not have to fit
// in memory.
//
//	f, err := csvstream.New(csvstream.DefaultConfig())
//	if err != nil { ... }
//	buf, err := f.Format(rows)
//	if err != nil { ... }
//	defer buf.Close()
//	io.Copy(os.Stdout, buf)
//
// # Rows
//
// A row is normalized in this order:
//
//   - [Mappable] → its Pairs, in order ([Record] implements it)
//   - maps with string keys, of any value type → keys in lexical order
//   - slices and arrays → positional values
//   - maps with integer keys → positional values in key order
//
// A nil pointer is not a row.
//
// Values render in their natural string form. nil, nil pointers and
// driver.Valuer values reporting nil are null.
//
// # Columns
//
// With [Config.IncludeHeader] set, column names come from the first row, or
// from all rows when [Config.CheckAllRows] is set. The latter iterates the
// source twice, so it needs a source that can be replayed. [Config.Columns]
// fixes the columns instead. A row missing a column renders
// [Config.MissingValue]; a nil value renders [Config.NullValue]. Without
// columns each row's values are written as they come.
//
// An empty collection produces an empty stream, with no header line. When
// the discovered column set is empty, for example because the first row has
// no keys, the header is omitted and every row renders as an empty line.
//
// # Sources
//
// [Formatter.Format] accepts slices, arrays, receive channels, iterators of
// any element type (iter.Seq[T], and iter.Seq2[T, error]) and [Source]. A Source can report an error part way through, which aborts
// the operation; this is also how callers cancel a long-running format.
//
// # Quoting
//
// Fields containing the delimiter, the enclosure, CR or LF are enclosed.
// Enclosures inside are doubled unless directly preceded by the escape
// character. See [EncodeLine].
//
// # Errors
//
//   - [ErrInvalidInput]: data is not iterable, or a row has no usable shape
//   - [ErrSchemaConflict]: positional rows where named columns are required
//   - [ErrWriteFailure]: the output stream rejected a write
//   - [ErrInvalidConfig]: the configuration is inconsistent
//
// Every failure aborts the whole operation; no partial stream is returned.
package csvstream
