package csvmap

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// TrimMode controls whitespace trimming of cells while reading.
type TrimMode int

const (
	TrimUnquoted TrimMode = iota // trim spaces and tabs around unquoted cells
	TrimNone                     // keep cells verbatim
	TrimAll                      // trim quoted cells too
)

// FormatOptions configures the text format. Treat values as immutable: the
// With methods return modified copies and never share slices with the receiver.
type FormatOptions struct {
	Separator   rune
	QuoteChar   rune
	EscapeChar  rune
	QuoteEscape rune

	// MustQuote forces wrapping of any cell containing one of these.
	MustQuote []rune
	// MustEscape characters are prefixed with EscapeChar.
	MustEscape []rune

	LineSeparator string
	ForceQuotes   bool

	// Encoding is the text encoding name. Use WithEncoding to set it so that
	// unknown names are normalized to utf-8.
	Encoding string

	// Comment marks lines skipped while reading. Zero disables comments.
	Comment rune
	Trim    TrimMode

	// Strict surfaces every failed conversion as an error instead of falling
	// back to the target type's zero value.
	Strict bool
}

const defaultEncoding = "utf-8"

// DefaultOptions returns the default configuration.
func DefaultOptions() FormatOptions {
	return FormatOptions{
		Separator:     ',',
		QuoteChar:     '"',
		EscapeChar:    '\\',
		QuoteEscape:   '"',
		MustQuote:     []rune{'+', ' '},
		MustEscape:    []rune{},
		LineSeparator: platformNewline(),
		Encoding:      defaultEncoding,
		Comment:       '#',
		Trim:          TrimUnquoted,
	}
}

func platformNewline() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

func (o FormatOptions) clone() FormatOptions {
	o.MustQuote = slices.Clone(o.MustQuote)
	o.MustEscape = slices.Clone(o.MustEscape)
	return o
}

// WithSeparator returns a copy using sep as the cell separator.
func (o FormatOptions) WithSeparator(sep rune) FormatOptions {
	o = o.clone()
	o.Separator = sep
	return o
}

// WithLineSeparator returns a copy using sep between rows.
func (o FormatOptions) WithLineSeparator(sep string) FormatOptions {
	o = o.clone()
	o.LineSeparator = sep
	return o
}

// WithForceQuotes returns a copy that wraps every cell when force is set.
func (o FormatOptions) WithForceQuotes(force bool) FormatOptions {
	o = o.clone()
	o.ForceQuotes = force
	return o
}

// WithMustQuote returns a copy with the given must-quote set.
func (o FormatOptions) WithMustQuote(chars ...rune) FormatOptions {
	o = o.clone()
	o.MustQuote = slices.Clone(chars)
	return o
}

// WithMustEscape returns a copy with the given must-escape set.
func (o FormatOptions) WithMustEscape(chars ...rune) FormatOptions {
	o = o.clone()
	o.MustEscape = slices.Clone(chars)
	return o
}

// WithTrim returns a copy using mode for whitespace around cells.
func (o FormatOptions) WithTrim(mode TrimMode) FormatOptions {
	o = o.clone()
	o.Trim = mode
	return o
}

// WithStrict returns a copy with strict conversion toggled.
func (o FormatOptions) WithStrict(strict bool) FormatOptions {
	o = o.clone()
	o.Strict = strict
	return o
}

// WithEncoding returns a copy using the named text encoding. Unrecognized
// names fall back to utf-8 with a logged warning.
func (o FormatOptions) WithEncoding(name string) FormatOptions {
	o = o.clone()
	enc, ok := lookupEncoding(name)
	if !ok {
		slog.Warn("unrecognized text encoding, using utf-8", "component", "csvmap", "encoding", name)
		o.Encoding = defaultEncoding
		return o
	}
	o.Encoding = encodingName(enc, name)
	return o
}

// TextEncoding resolves the configured encoding, falling back to UTF-8.
func (o FormatOptions) TextEncoding() encoding.Encoding {
	if enc, ok := lookupEncoding(o.Encoding); ok {
		return enc
	}
	return unicode.UTF8
}

func lookupEncoding(name string) (encoding.Encoding, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, true
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, true
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, true
	}
	return nil, false
}

func encodingName(enc encoding.Encoding, fallback string) string {
	if name, err := htmlindex.Name(enc); err == nil {
		return name
	}
	return strings.ToLower(fallback)
}

// Validate reports conflicting or missing special characters.
func (o FormatOptions) Validate() error {
	switch {
	case o.Separator == 0:
		return fmt.Errorf("%w: separator is not set", ErrInvalidOptions)
	case o.QuoteChar == 0:
		return fmt.Errorf("%w: quote char is not set", ErrInvalidOptions)
	case o.QuoteEscape == 0:
		return fmt.Errorf("%w: quote escape is not set", ErrInvalidOptions)
	case isLineBreak(o.Separator) || isLineBreak(o.QuoteChar):
		return fmt.Errorf("%w: separator and quote char cannot be line breaks", ErrInvalidOptions)
	case o.Separator == o.QuoteChar:
		return fmt.Errorf("%w: separator %q equals quote char", ErrInvalidOptions, o.Separator)
	case o.Separator == o.EscapeChar:
		return fmt.Errorf("%w: separator %q equals escape char", ErrInvalidOptions, o.Separator)
	case o.Separator == o.QuoteEscape:
		return fmt.Errorf("%w: separator %q equals quote escape", ErrInvalidOptions, o.Separator)
	case o.EscapeChar != 0 && o.EscapeChar == o.QuoteChar:
		return fmt.Errorf("%w: escape char %q equals quote char", ErrInvalidOptions, o.EscapeChar)
	case o.Comment != 0 && (o.Comment == o.Separator || o.Comment == o.QuoteChar):
		return fmt.Errorf("%w: comment marker %q collides with separator or quote char", ErrInvalidOptions, o.Comment)
	case o.LineSeparator == "":
		return fmt.Errorf("%w: line separator is empty", ErrInvalidOptions)
	case strings.ContainsRune(o.LineSeparator, o.Separator) || strings.ContainsRune(o.LineSeparator, o.QuoteChar):
		return fmt.Errorf("%w: line separator %q contains separator or quote char", ErrInvalidOptions, o.LineSeparator)
	case len(o.MustEscape) > 0 && o.EscapeChar == 0:
		return fmt.Errorf("%w: must-escape set requires an escape char", ErrInvalidOptions)
	}
	return nil
}

func isLineBreak(r rune) bool { return r == '\n' || r == '\r' }
