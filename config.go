package csvmap

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// optionsFile is the YAML shape read by LoadOptions. Pointer fields
// distinguish omitted keys from zero values.
type optionsFile struct {
	Dialect       string   `yaml:"dialect"`
	Separator     *string  `yaml:"separator"`
	Quote         *string  `yaml:"quote"`
	Escape        *string  `yaml:"escape"`
	QuoteEscape   *string  `yaml:"quote_escape"`
	MustQuote     []string `yaml:"must_quote"`
	MustEscape    []string `yaml:"must_escape"`
	LineSeparator *string  `yaml:"line_separator"`
	ForceQuotes   *bool    `yaml:"force_quotes"`
	Encoding      *string  `yaml:"encoding"`
	Comment       *string  `yaml:"comment"`
	Trim          *string  `yaml:"trim"`
	Strict        *bool    `yaml:"strict"`
}

var lineSeparators = map[string]string{
	`\n`:   "\n",
	`\r\n`: "\r\n",
	`\r`:   "\r",
	"lf":   "\n",
	"crlf": "\r\n",
	"cr":   "\r",
}

var trimModes = map[string]TrimMode{
	"unquoted": TrimUnquoted,
	"none":     TrimNone,
	"all":      TrimAll,
}

// LoadOptions reads YAML options from r. Omitted keys keep the values of the
// selected dialect (csv by default). The result is validated.
func LoadOptions(r io.Reader) (FormatOptions, error) {
	var f optionsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return FormatOptions{}, fmt.Errorf("%w: decode yaml: %w", ErrInvalidOptions, err)
	}
	return f.options()
}

// LoadOptionsFile reads YAML options from the file at path.
func LoadOptionsFile(path string) (FormatOptions, error) {
	fh, err := os.Open(path)
	if err != nil {
		return FormatOptions{}, err
	}
	defer fh.Close()
	return LoadOptions(fh)
}

func (f optionsFile) options() (FormatOptions, error) {
	o := DefaultOptions()
	if f.Dialect != "" {
		d, err := ParseDialect(f.Dialect)
		if err != nil {
			return FormatOptions{}, err
		}
		o = d.Options()
	}

	runes := []struct {
		key string
		src *string
		dst *rune
	}{
		{"separator", f.Separator, &o.Separator},
		{"quote", f.Quote, &o.QuoteChar},
		{"escape", f.Escape, &o.EscapeChar},
		{"quote_escape", f.QuoteEscape, &o.QuoteEscape},
		{"comment", f.Comment, &o.Comment},
	}
	for _, r := range runes {
		if r.src == nil {
			continue
		}
		c, err := singleRune(r.key, *r.src)
		if err != nil {
			return FormatOptions{}, err
		}
		*r.dst = c
	}

	if f.MustQuote != nil {
		set, err := runeSet("must_quote", f.MustQuote)
		if err != nil {
			return FormatOptions{}, err
		}
		o.MustQuote = set
	}
	if f.MustEscape != nil {
		set, err := runeSet("must_escape", f.MustEscape)
		if err != nil {
			return FormatOptions{}, err
		}
		o.MustEscape = set
	}
	if f.LineSeparator != nil {
		sep, ok := lineSeparators[strings.ToLower(*f.LineSeparator)]
		if !ok {
			sep = *f.LineSeparator
		}
		o.LineSeparator = sep
	}
	if f.ForceQuotes != nil {
		o.ForceQuotes = *f.ForceQuotes
	}
	if f.Strict != nil {
		o.Strict = *f.Strict
	}
	if f.Trim != nil {
		mode, ok := trimModes[strings.ToLower(*f.Trim)]
		if !ok {
			return FormatOptions{}, fmt.Errorf("%w: unknown trim mode %q", ErrInvalidOptions, *f.Trim)
		}
		o.Trim = mode
	}
	if f.Encoding != nil {
		o = o.WithEncoding(*f.Encoding)
	}
	if err := o.Validate(); err != nil {
		return FormatOptions{}, err
	}
	return o, nil
}

// singleRune accepts exactly one rune. An empty value disables the char.
func singleRune(key, s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	switch utf8.RuneCountInString(s) {
	case 0:
		return 0, nil
	case 1:
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a single character, got %q", ErrInvalidOptions, key, s)
	}
}

func runeSet(key string, items []string) ([]rune, error) {
	out := make([]rune, 0, len(items))
	for _, item := range items {
		r, err := singleRune(key, item)
		if err != nil {
			return nil, err
		}
		if r != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}
