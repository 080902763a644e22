package csvmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Codec serializes and deserializes records of type T, which must be a
// struct or a pointer to a struct.
type Codec[T any] struct {
	schema  *Schema
	options FormatOptions
}

// NewCodec returns a codec for T backed by [DefaultRegistry] and using the
// type's default options.
func NewCodec[T any]() (*Codec[T], error) {
	return NewCodecWith[T](DefaultRegistry)
}

// NewCodecWith returns a codec for T whose schema is memoized in reg.
func NewCodecWith[T any](reg *Registry) (*Codec[T], error) {
	s, err := reg.Schema(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Codec[T]{schema: s, options: s.Options()}, nil
}

// Schema returns the resolved schema.
func (c *Codec[T]) Schema() *Schema { return c.schema }

// Options returns the options used by c.
func (c *Codec[T]) Options() FormatOptions { return c.options.clone() }

// WithOptions returns a copy of c using opts. The receiver is unchanged.
func (c *Codec[T]) WithOptions(opts FormatOptions) *Codec[T] {
	return &Codec[T]{schema: c.schema, options: opts.clone()}
}

// Marshal serializes records and returns the encoded bytes.
func (c *Codec[T]) Marshal(records ...T) ([]byte, error) {
	if err := c.options.Validate(); err != nil {
		return nil, err
	}
	text := c.render(records)
	enc := c.options.TextEncoding()
	if enc == xunicode.UTF8 {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.options.Encoding, err)
	}
	return []byte(out), nil
}

// Write serializes records to w.
func (c *Codec[T]) Write(w io.Writer, records ...T) error {
	data, err := c.Marshal(records...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// render builds the header line and one line per record, then trims
// trailing whitespace from the whole text.
func (c *Codec[T]) render(records []T) string {
	var b strings.Builder
	c.options.joinCells(&b, c.schema.Header())

	conv := Converter{Strict: c.options.Strict}
	cells := make([]string, len(c.schema.fields))
	for _, rec := range records {
		v := recordValue(reflect.ValueOf(&rec).Elem())
		for i, f := range c.schema.fields {
			if !v.IsValid() {
				cells[i] = ""
				continue
			}
			cells[i] = conv.Format(v.FieldByIndex(f.index), f.Format)
		}
		c.options.joinCells(&b, cells)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// recordValue dereferences pointer records. A nil pointer yields the zero
// Value.
func recordValue(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// Unmarshal deserializes every record in data.
func (c *Codec[T]) Unmarshal(data []byte) ([]T, error) {
	return c.Read(bytes.NewReader(data))
}

// Read decodes r with the configured text encoding and deserializes every
// record using the built-in [Reader].
func (c *Codec[T]) Read(r io.Reader) ([]T, error) {
	if err := c.options.Validate(); err != nil {
		return nil, err
	}
	rows := NewReader(decode(r, c.options.TextEncoding()), c.options)
	// A one-column record with an empty value is written as a blank line.
	rows.KeepBlankLines = len(c.schema.fields) == 1
	return c.ReadRows(rows)
}

func decode(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, xunicode.BOMOverride(enc.NewDecoder()))
}

// ReadRows deserializes records from rows. The first row is the header; its
// cells are only used to locate columns by name, so column order in the
// input does not matter. The first failing cell aborts the whole call.
func (c *Codec[T]) ReadRows(rows RowReader) ([]T, error) {
	header, err := rows.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	positions := c.columnPositions(header)

	var out []T
	for n := 1; ; n++ {
		cells, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := c.decodeRecord(n, cells, positions)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// columnPositions maps each schema field to its header index, -1 when
// absent. Duplicate header names resolve to the first occurrence.
func (c *Codec[T]) columnPositions(header []string) []int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	positions := make([]int, len(c.schema.fields))
	for i, f := range c.schema.fields {
		pos, ok := index[f.Column()]
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}
	return positions
}

func (c *Codec[T]) decodeRecord(n int, cells []string, positions []int) (T, error) {
	var rec T
	v := reflect.ValueOf(&rec).Elem()
	if v.Kind() == reflect.Pointer {
		v.Set(reflect.New(c.schema.typ))
		v = v.Elem()
	}
	conv := Converter{Strict: c.options.Strict}
	for i, f := range c.schema.fields {
		pos := positions[i]
		if pos < 0 {
			return rec, fmt.Errorf("%w: row %d: column %q not found", ErrSchemaMismatch, n, f.Column())
		}
		if pos >= len(cells) {
			return rec, fmt.Errorf("%w: row %d: column %q missing, row has %d cells", ErrSchemaMismatch, n, f.Column(), len(cells))
		}
		res, err := conv.Parse(cells[pos], f.Type, f.Format)
		if err != nil {
			var ce *ConversionError
			if errors.As(err, &ce) {
				ce.Row, ce.Column = n, f.Column()
			}
			return rec, err
		}
		v.FieldByIndex(f.index).Set(res.Value)
	}
	return rec, nil
}
