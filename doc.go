// Package csvmap maps Go structs to and from delimited text.
//
// The central entry points are [Marshal], [Write], [Unmarshal], and [Read],
// which work on any struct type (or pointer to struct). A [Codec] holds the
// resolved [Schema] for one type plus the [FormatOptions] used for every call.
//
// # Columns
//
// Exported fields become columns. Struct tags control the column name, its
// position, and the layout of time values:
//
//	type Person struct {
//		Age     int       `csv:",order=0"`
//		Name    string    `csv:"full_name"`
//		Born    time.Time `csv:"born,format=2006-01-02"`
//		Secret  string    `csv:"-"`
//	}
//
// Columns sort by order, then by column name; fields without an order use
// [Unordered], which sorts first. Exact ties keep declaration order and are
// reported by [Schema.Ambiguities]. Implement [Described] to supply
// descriptors without tags, and [Optioned] to attach default options to a type.
//
// Schemas are resolved once per type and memoized in a [Registry].
//
// # Quoting
//
// [FormatOptions.QuoteCell] escapes quote chars with QuoteEscape and
// MustEscape chars with EscapeChar, then wraps the cell in quotes when it
// contains the quote char, the separator, or a MustQuote char, or when
// ForceQuotes is set.
//
// Unquoted cells are trimmed on read, and a line whose first char is the
// comment marker is skipped. Add '\t' and '#' to MustQuote when cells may
// start with a tab or a '#' and must survive a round trip:
//
//	opts := csvmap.DefaultOptions().WithMustQuote('+', ' ', '\t', '#')
//
// # Conversion
//
// time.Time cells use the field layout or [DefaultTimeLayout]. Reading a time
// without a layout detects the format and falls back to a list of common
// layouts. Time, pointer, and sql.Scanner fields are strict: bad input fails
// the whole call with a [*ConversionError]. Everything else is lenient: bad
// input becomes the zero value unless FormatOptions.Strict is set.
//
// # Reading
//
// The first row is the header. Cells are matched to fields by column name, so
// column order in the input is irrelevant. [Codec.ReadRows] accepts any
// [RowReader], including [*encoding/csv.Reader]; [Reader] is the built-in
// tokenizer honoring every FormatOptions knob.
//
// # Configuration
//
// Use [DefaultOptions], a [Dialect] preset, or [LoadOptions] to read YAML:
//
//	dialect: tsv
//	force_quotes: true
//	encoding: windows-1252
//
// Unrecognized encodings fall back to UTF-8 with a logged warning.
//
// # Errors
//
// The package exports sentinel errors for programmatic handling:
//
//   - [ErrInvalidOptions]: conflicting or missing special characters
//   - [ErrUnsupportedDialect]: unknown dialect name
//   - [ErrUnsupportedType]: record type is not a struct
//   - [ErrInvalidSchema]: malformed tag or descriptor
//   - [ErrConversion]: strict conversion failed
//   - [ErrSchemaMismatch]: a column is missing from the input
package csvmap
