package csvstream

import "errors"

// Sentinel errors for programmatic error handling.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSchemaConflict    = errors.New("schema conflict")
	ErrWriteFailure      = errors.New("write failure")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrClosed            = errors.New("stream closed")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ContentType is the content type of formatted output.
const ContentType = "text/csv; charset=UTF-8"

// Format identifies a response format in a [Registry].
type Format string

// FormatCSV is the identifier the CSV formatter registers under.
const FormatCSV Format = "csv"

// String returns the format name.
func (f Format) String() string { return string(f) }
