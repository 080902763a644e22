package csvmap_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bjaus/csvmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string, opts csvmap.FormatOptions) ([][]string, error) {
	t.Helper()
	return csvmap.NewReader(strings.NewReader(input), opts).ReadAll()
}

func TestReader(t *testing.T) {
	t.Parallel()
	backslash := csvmap.DefaultOptions()
	backslash.QuoteEscape = '\\'

	tests := map[string]struct {
		opts  csvmap.FormatOptions
		input string
		want  [][]string
	}{
		"basic": {
			input: "a,b\n1,2\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		"no final newline": {
			input: "a,b\n1,2",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		"crlf": {
			input: "a,b\r\n1,2\r\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		"bare cr": {
			input: "a,b\r1,2",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		"quoted separator": {
			input: `"Bob, Jr.",x`,
			want:  [][]string{{"Bob, Jr.", "x"}},
		},
		"doubled quote": {
			input: `"say ""hi""",x`,
			want:  [][]string{{`say "hi"`, "x"}},
		},
		"quoted newline": {
			input: "\"line1\nline2\",x\n",
			want:  [][]string{{"line1\nline2", "x"}},
		},
		"empty cells": {
			input: ",,\n",
			want:  [][]string{{"", "", ""}},
		},
		"trailing separator": {
			input: "a,",
			want:  [][]string{{"a", ""}},
		},
		"empty quoted": {
			input: `"",a`,
			want:  [][]string{{"", "a"}},
		},
		"custom separator": {
			opts:  csvmap.PSV.Options(),
			input: "a|b,c\n",
			want:  [][]string{{"a", "b,c"}},
		},
		"tab separator": {
			opts:  csvmap.TSV.Options(),
			input: "a\tb c\n",
			want:  [][]string{{"a", "b c"}},
		},
		"comments and blank lines": {
			input: "# note\na,b\n\n# another\r\n\r\n1,2\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		"hash inside row": {
			input: "a,#b\n",
			want:  [][]string{{"a", "#b"}},
		},
		"trim unquoted": {
			input: "  a , b\t\n",
			want:  [][]string{{"a", "b"}},
		},
		"quoted spaces kept": {
			input: `" a ", "b" ` + "\n",
			want:  [][]string{{" a ", "b"}},
		},
		"trim all": {
			opts:  csvmap.DefaultOptions().WithTrim(csvmap.TrimAll),
			input: `" a ",b`,
			want:  [][]string{{"a", "b"}},
		},
		"trim none": {
			opts:  csvmap.DefaultOptions().WithTrim(csvmap.TrimNone),
			input: " a , b\n",
			want:  [][]string{{" a ", " b"}},
		},
		"backslash quote escape": {
			opts:  backslash,
			input: `"a\"b",c`,
			want:  [][]string{{`a"b`, "c"}},
		},
		"lone backslash kept": {
			input: `a\b,"c\d"`,
			want:  [][]string{{`a\b`, `c\d`}},
		},
		"must escape": {
			opts:  csvmap.DefaultOptions().WithMustEscape(';', '\\'),
			input: `a\;b,c\\d`,
			want:  [][]string{{"a;b", `c\d`}},
		},
		"must escape quoted": {
			opts:  csvmap.DefaultOptions().WithMustEscape(';'),
			input: `"a\;b"`,
			want:  [][]string{{"a;b"}},
		},
		"unicode": {
			input: "ünï,çødé\n",
			want:  [][]string{{"ünï", "çødé"}},
		},
		"empty input": {
			input: "",
			want:  nil,
		},
		"only comments": {
			input: "# a\n# b",
			want:  nil,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			opts := tt.opts
			if opts.Separator == 0 {
				opts = csvmap.DefaultOptions()
			}
			got, err := readAll(t, tt.input, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderDisabledComment(t *testing.T) {
	t.Parallel()
	opts := csvmap.DefaultOptions()
	opts.Comment = 0
	got, err := readAll(t, "#a,b\n", opts)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"#a", "b"}}, got)
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		opts   csvmap.FormatOptions
		input  string
		err    error
		line   int
		column int
	}{
		"bare quote": {
			input:  "h\na\"b\n",
			err:    csvmap.ErrBareQuote,
			line:   2,
			column: 2,
		},
		"unterminated": {
			input:  `"abc`,
			err:    csvmap.ErrUnterminatedQuote,
			line:   1,
			column: 4,
		},
		"extraneous": {
			input:  `"a"b,c`,
			err:    csvmap.ErrExtraneousData,
			line:   1,
			column: 4,
		},
		"quote after spaces with trim none": {
			opts:   csvmap.DefaultOptions().WithTrim(csvmap.TrimNone),
			input:  ` "a"`,
			err:    csvmap.ErrBareQuote,
			line:   1,
			column: 2,
		},
		"space after quote with trim none": {
			opts:   csvmap.DefaultOptions().WithTrim(csvmap.TrimNone),
			input:  `"a" ,b`,
			err:    csvmap.ErrExtraneousData,
			line:   1,
			column: 4,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			opts := tt.opts
			if opts.Separator == 0 {
				opts = csvmap.DefaultOptions()
			}
			_, err := readAll(t, tt.input, opts)
			require.ErrorIs(t, err, tt.err)
			var pe *csvmap.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestReaderRead(t *testing.T) {
	t.Parallel()
	r := csvmap.NewReader(strings.NewReader("a\n\nb\n"), csvmap.DefaultOptions())

	row, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, row)

	row, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, row)

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReaderPropagatesIOError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := csvmap.NewReader(failingReader{err: boom}, csvmap.DefaultOptions()).ReadAll()
	assert.ErrorIs(t, err, boom)
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()
	err := &csvmap.ParseError{Line: 3, Column: 7, Err: csvmap.ErrBareQuote}
	assert.Equal(t, "csvmap: parse error on line 3, column 7: csvmap: bare quote in non-quoted cell", err.Error())
}

func TestReaderKeepBlankLines(t *testing.T) {
	t.Parallel()
	r := csvmap.NewReader(strings.NewReader("a\n\nb\r\n\r\nc"), csvmap.DefaultOptions())
	r.KeepBlankLines = true
	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {""}, {"b"}, {""}, {"c"}}, got)
}
