package csvmap_test

import (
	"testing"

	"github.com/bjaus/csvmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	o := csvmap.DefaultOptions()
	assert.Equal(t, ',', o.Separator)
	assert.Equal(t, '"', o.QuoteChar)
	assert.Equal(t, '\\', o.EscapeChar)
	assert.Equal(t, '"', o.QuoteEscape)
	assert.Equal(t, []rune{'+', ' '}, o.MustQuote)
	assert.Empty(t, o.MustEscape)
	assert.False(t, o.ForceQuotes)
	assert.False(t, o.Strict)
	assert.Equal(t, "utf-8", o.Encoding)
	assert.Equal(t, '#', o.Comment)
	assert.Equal(t, csvmap.TrimUnquoted, o.Trim)
	assert.NotEmpty(t, o.LineSeparator)
	require.NoError(t, o.Validate())
}

func TestWithDoesNotShareSlices(t *testing.T) {
	t.Parallel()
	base := csvmap.DefaultOptions()
	derived := base.WithSeparator(';')
	derived.MustQuote[0] = 'x'
	assert.Equal(t, []rune{'+', ' '}, base.MustQuote)
	assert.Equal(t, ',', base.Separator)
}

func TestWithEncoding(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		name string
		want string
	}{
		"utf-8":        {name: "utf-8", want: "utf-8"},
		"upper case":   {name: "UTF-8", want: "utf-8"},
		"windows-1252": {name: "windows-1252", want: "windows-1252"},
		"iso-8859-15":  {name: "iso-8859-15", want: "iso-8859-15"},
		"unknown":      {name: "latin-9999", want: "utf-8"},
		"empty":        {name: "", want: "utf-8"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			o := csvmap.DefaultOptions().WithEncoding(tt.name)
			assert.Equal(t, tt.want, o.Encoding)
		})
	}
}

func TestUnknownEncodingFallsBackToUTF8(t *testing.T) {
	t.Parallel()
	o := csvmap.DefaultOptions().WithEncoding("latin-9999")
	assert.Equal(t, "utf-8", o.Encoding)
	assert.Equal(t, unicode.UTF8, o.TextEncoding())
	require.NoError(t, o.Validate())
}

func TestTextEncoding(t *testing.T) {
	t.Parallel()
	o := csvmap.DefaultOptions().WithEncoding("windows-1252")
	assert.Equal(t, charmap.Windows1252, o.TextEncoding())

	// Set directly, bypassing WithEncoding.
	o.Encoding = "no-such-charset"
	assert.Equal(t, unicode.UTF8, o.TextEncoding())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := map[string]func(o *csvmap.FormatOptions){
		"zero separator":         func(o *csvmap.FormatOptions) { o.Separator = 0 },
		"zero quote":             func(o *csvmap.FormatOptions) { o.QuoteChar = 0 },
		"zero quote escape":      func(o *csvmap.FormatOptions) { o.QuoteEscape = 0 },
		"newline separator":      func(o *csvmap.FormatOptions) { o.Separator = '\n' },
		"carriage return quote":  func(o *csvmap.FormatOptions) { o.QuoteChar = '\r' },
		"separator is quote":     func(o *csvmap.FormatOptions) { o.Separator = '"' },
		"separator is escape":    func(o *csvmap.FormatOptions) { o.Separator = '\\' },
		"separator is quote esc": func(o *csvmap.FormatOptions) { o.QuoteEscape = ',' },
		"escape is quote":        func(o *csvmap.FormatOptions) { o.EscapeChar = '"' },
		"comment is separator":   func(o *csvmap.FormatOptions) { o.Comment = ',' },
		"empty line separator":   func(o *csvmap.FormatOptions) { o.LineSeparator = "" },
		"line separator has sep": func(o *csvmap.FormatOptions) { o.LineSeparator = ",\n" },
		"must escape no escape": func(o *csvmap.FormatOptions) {
			o.EscapeChar = 0
			o.MustEscape = []rune{';'}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			o := csvmap.DefaultOptions()
			mutate(&o)
			assert.ErrorIs(t, o.Validate(), csvmap.ErrInvalidOptions)
		})
	}
}

func TestValidateAllowsDisabledComment(t *testing.T) {
	t.Parallel()
	o := csvmap.DefaultOptions()
	o.Comment = 0
	o.EscapeChar = 0
	assert.NoError(t, o.Validate())
}

// --- Quote/escape engine ---

func TestQuoteCell(t *testing.T) {
	t.Parallel()
	backslashQuote := csvmap.DefaultOptions()
	backslashQuote.QuoteEscape = '\\'

	tests := map[string]struct {
		opts csvmap.FormatOptions
		cell string
		want string
	}{
		"plain":             {opts: csvmap.DefaultOptions(), cell: "abc", want: "abc"},
		"empty":             {opts: csvmap.DefaultOptions(), cell: "", want: ""},
		"quote":             {opts: csvmap.DefaultOptions(), cell: `a"b`, want: `"a""b"`},
		"separator":         {opts: csvmap.DefaultOptions(), cell: "a,b", want: `"a,b"`},
		"space":             {opts: csvmap.DefaultOptions(), cell: "a b", want: `"a b"`},
		"plus":              {opts: csvmap.DefaultOptions(), cell: "+1", want: `"+1"`},
		"newline unquoted":  {opts: csvmap.DefaultOptions(), cell: "a\nb", want: "a\nb"},
		"forced":            {opts: csvmap.DefaultOptions().WithForceQuotes(true), cell: "abc", want: `"abc"`},
		"forced empty":      {opts: csvmap.DefaultOptions().WithForceQuotes(true), cell: "", want: `""`},
		"backslash escaped": {opts: backslashQuote, cell: `a"b`, want: `"a\"b"`},
		"must escape":       {opts: csvmap.DefaultOptions().WithMustEscape(';'), cell: "a;b", want: `a\;b`},
		"must escape self":  {opts: csvmap.DefaultOptions().WithMustEscape('\\'), cell: `a\b`, want: `a\\b`},
		"must escape sequential": {
			opts: csvmap.DefaultOptions().WithMustEscape(';', '\\'),
			cell: "a;b",
			want: `a\\;b`,
		},
		"no must quote":    {opts: csvmap.DefaultOptions().WithMustQuote(), cell: "a b", want: "a b"},
		"tab separator":    {opts: csvmap.TSV.Options(), cell: "a\tb", want: "\"a\tb\""},
		"comma in tsv":     {opts: csvmap.TSV.Options().WithMustQuote(), cell: "a,b", want: "a,b"},
		"escaped quote mc": {opts: csvmap.DefaultOptions().WithMustEscape('"'), cell: `"`, want: `"\"\""`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.opts.QuoteCell(tt.cell))
		})
	}
}
