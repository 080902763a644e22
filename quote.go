package csvmap

import (
	"slices"
	"strings"
)

// QuoteCell returns cell in its CSV-safe form.
//
// Quote chars are prefixed with QuoteEscape, then every MustEscape char is
// prefixed with EscapeChar, one set member at a time. The result is wrapped
// in QuoteChar when ForceQuotes is set or when the escaped text contains
// QuoteChar, Separator, or any MustQuote char. The wrap decision looks at
// the escaped text, so a cell with a quote in it is always wrapped.
func (o FormatOptions) QuoteCell(cell string) string {
	quote := string(o.QuoteChar)
	result := strings.ReplaceAll(cell, quote, string(o.QuoteEscape)+quote)
	for _, c := range o.MustEscape {
		result = strings.ReplaceAll(result, string(c), string(o.EscapeChar)+string(c))
	}
	if !o.mustWrap(result) {
		return result
	}
	var b strings.Builder
	b.Grow(len(result) + 2*len(quote))
	b.WriteString(quote)
	b.WriteString(result)
	b.WriteString(quote)
	return b.String()
}

func (o FormatOptions) mustWrap(s string) bool {
	return o.ForceQuotes ||
		strings.ContainsRune(s, o.QuoteChar) ||
		strings.ContainsRune(s, o.Separator) ||
		strings.ContainsFunc(s, func(r rune) bool { return slices.Contains(o.MustQuote, r) })
}

// joinCells quotes each cell and joins them with the separator.
func (o FormatOptions) joinCells(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteRune(o.Separator)
		}
		b.WriteString(o.QuoteCell(cell))
	}
	b.WriteString(o.LineSeparator)
}
