package csvstream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultMaxMemory is the default number of bytes kept in memory before
// output moves to a temporary file.
const DefaultMaxMemory = 20 << 20

// Char is a single character setting. It reads and writes as a one-character
// YAML string; the empty string is the zero Char.
type Char rune

// String returns the character, or "" for the zero Char.
func (c Char) String() string {
	if c == 0 {
		return ""
	}
	return string(rune(c))
}

// ParseChar parses s as a single character. The empty string yields 0.
func ParseChar(s string) (Char, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("%w: %q must be exactly one character", ErrInvalidConfig, s)
	}
	return Char(r), nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Char) MarshalYAML() (any, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Char) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseChar(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// Config controls how rows are turned into CSV. A Formatter copies its
// Config at construction; it is never changed during a format operation.
type Config struct {
	// MaxMemory is the number of bytes held in memory before output spills
	// to a temporary file. Zero spills on the first write.
	MaxMemory int64 `yaml:"max_memory"`

	// IncludeHeader writes column names as the first line.
	IncludeHeader bool `yaml:"include_header"`

	Delimiter Char `yaml:"delimiter"`
	Enclosure Char `yaml:"enclosure"`
	// Escape protects an enclosure that directly follows it. Zero disables it.
	Escape Char `yaml:"escape"`

	// CheckAllRows scans every row for column names instead of only the
	// first one. The row source is iterated twice.
	CheckAllRows bool `yaml:"check_all_rows"`

	// NullValue replaces nil values.
	NullValue string `yaml:"null_value"`
	// MissingValue replaces columns a row does not have.
	MissingValue string `yaml:"missing_value"`

	// Columns fixes the column set and skips discovery.
	Columns []string `yaml:"columns,omitempty"`

	// TempDir is where spill files are created. Empty uses os.TempDir.
	TempDir string `yaml:"temp_dir,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxMemory:     DefaultMaxMemory,
		IncludeHeader: true,
		Delimiter:     ',',
		Enclosure:     '"',
		Escape:        '\'',
		NullValue:     "(null)",
		MissingValue:  "(missing)",
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs []error
	if c.MaxMemory < 0 {
		errs = append(errs, fmt.Errorf("%w: max_memory must not be negative, got %d", ErrInvalidConfig, c.MaxMemory))
	}
	if c.Delimiter == 0 {
		errs = append(errs, fmt.Errorf("%w: delimiter is required", ErrInvalidConfig))
	}
	if c.Enclosure == 0 {
		errs = append(errs, fmt.Errorf("%w: enclosure is required", ErrInvalidConfig))
	}
	if c.Delimiter != 0 && c.Delimiter == c.Enclosure {
		errs = append(errs, fmt.Errorf("%w: delimiter and enclosure must differ", ErrInvalidConfig))
	}
	chars := []struct {
		name string
		ch   Char
	}{{"delimiter", c.Delimiter}, {"enclosure", c.Enclosure}, {"escape", c.Escape}}
	for _, s := range chars {
		if s.ch == '\r' || s.ch == '\n' || s.ch == utf8.RuneError {
			errs = append(errs, fmt.Errorf("%w: %s %q is not allowed", ErrInvalidConfig, s.name, rune(s.ch)))
		}
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if seen[col] {
			errs = append(errs, fmt.Errorf("%w: duplicate column %q", ErrInvalidConfig, col))
		}
		seen[col] = true
	}
	return errors.Join(errs...)
}

// LoadConfig decodes a YAML document over [DefaultConfig] and validates the
// result. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads the configuration from a YAML file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return LoadConfig(f)
}
