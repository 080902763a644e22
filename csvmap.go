package csvmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for programmatic error handling.
var (
	ErrInvalidOptions     = errors.New("invalid format options")
	ErrUnsupportedDialect = errors.New("unsupported dialect")
	ErrUnsupportedType    = errors.New("unsupported record type")
	ErrInvalidSchema      = errors.New("invalid schema")
	ErrConversion         = errors.New("conversion failed")
	ErrSchemaMismatch     = errors.New("schema mismatch")
)

// Dialect names a preset FormatOptions configuration.
type Dialect string

const (
	CSV Dialect = "csv" // comma separated
	TSV Dialect = "tsv" // tab separated
	SSV Dialect = "ssv" // semicolon separated
	PSV Dialect = "psv" // pipe separated
)

var dialects = []Dialect{CSV, TSV, SSV, PSV}

// String returns the dialect name.
func (d Dialect) String() string { return string(d) }

// Dialects returns all supported dialect names.
func Dialects() []Dialect {
	out := make([]Dialect, len(dialects))
	copy(out, dialects)
	return out
}

// ParseDialect parses a dialect name such as a CLI flag value.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range dialects {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, s)
}

// Options returns the default options with the dialect's separator applied.
// Unknown dialects yield the plain defaults.
func (d Dialect) Options() FormatOptions {
	o := DefaultOptions()
	switch d {
	case TSV:
		o.Separator = '\t'
	case SSV:
		o.Separator = ';'
	case PSV:
		o.Separator = '|'
	}
	return o
}

// --- Optional Interfaces ---

// Optioned supplies per-type default options. The result is captured once
// when the type's schema is resolved.
// Default: [DefaultOptions].
type Optioned interface {
	CSVOptions() FormatOptions
}

// Described supplies field descriptors explicitly instead of struct tags.
// Each descriptor's Field must name an exported field of the record struct;
// Type is filled in by the resolver. A zero Order means position 0; build
// descriptors with [NewFieldDescriptor] to start from [Unordered] like an
// untagged field.
type Described interface {
	CSVFields() []FieldDescriptor
}

// RowReader yields one row of cells per call and io.EOF when exhausted.
// [*Reader] and [*encoding/csv.Reader] both satisfy it.
type RowReader interface {
	Read() ([]string, error)
}

// Write serializes records to w using the record type's default options.
func Write[T any](w io.Writer, records ...T) error {
	c, err := NewCodec[T]()
	if err != nil {
		return err
	}
	return c.Write(w, records...)
}

// Marshal serializes records and returns the bytes.
func Marshal[T any](records ...T) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, records...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read deserializes every record from r using the record type's default options.
func Read[T any](r io.Reader) ([]T, error) {
	c, err := NewCodec[T]()
	if err != nil {
		return nil, err
	}
	return c.Read(r)
}

// Unmarshal deserializes every record in data.
func Unmarshal[T any](data []byte) ([]T, error) {
	return Read[T](bytes.NewReader(data))
}
