package csvmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	// ErrBareQuote is returned when a quote char appears inside an unquoted cell.
	ErrBareQuote = errors.New("csvmap: bare quote in non-quoted cell")
	// ErrUnterminatedQuote is returned when input ends inside a quoted cell.
	ErrUnterminatedQuote = errors.New("csvmap: unterminated quoted cell")
	// ErrExtraneousData is returned when text follows a closing quote.
	ErrExtraneousData = errors.New("csvmap: extraneous data after quoted cell")
)

// ParseError contains location information for tokenizer errors.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csvmap: parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader splits delimited text into rows of cells.
//
// Cells may be wrapped in QuoteChar, which protects separators and line
// breaks. Inside a quoted cell, QuoteEscape followed by QuoteChar yields a
// literal quote; when QuoteEscape equals QuoteChar this is the doubled-quote
// convention. EscapeChar followed by a MustEscape char yields that char.
// Blank lines and lines starting with the comment marker are skipped.
type Reader struct {
	// KeepBlankLines reports blank lines as rows holding one empty cell
	// instead of skipping them.
	KeepBlankLines bool

	opts FormatOptions
	br   *bufio.Reader

	line, col         int
	prevLine, prevCol int
	lastRune          rune
}

// NewReader returns a Reader over r configured by opts.
func NewReader(r io.Reader, opts FormatOptions) *Reader {
	return &Reader{opts: opts.clone(), br: bufio.NewReader(r), line: 1}
}

// Read returns the next row. It returns io.EOF when no rows remain.
func (r *Reader) Read() ([]string, error) {
	for {
		row, err := r.readRow()
		if err != nil || row != nil {
			return row, err
		}
	}
}

// ReadAll reads the remaining rows.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// readRow returns nil, nil for skipped lines.
func (r *Reader) readRow() ([]string, error) {
	c, err := r.next()
	if err != nil {
		return nil, err
	}
	switch {
	case c == '\n':
		return r.blankRow(), nil
	case c == '\r':
		return r.blankRow(), r.skipLF()
	case r.opts.Comment != 0 && c == r.opts.Comment:
		return nil, r.skipLine()
	}
	r.unread()

	var row []string
	for {
		cell, last, err := r.readCell()
		if err != nil {
			return nil, err
		}
		row = append(row, cell)
		if last {
			return row, nil
		}
	}
}

func (r *Reader) blankRow() []string {
	if r.KeepBlankLines {
		return []string{""}
	}
	return nil
}

// readCell consumes one cell and reports whether it ended the row.
func (r *Reader) readCell() (string, bool, error) {
	var lead strings.Builder
	c, err := r.next()
	for err == nil && c != r.opts.Separator && (c == ' ' || c == '\t') {
		lead.WriteRune(c)
		c, err = r.next()
	}
	if err == nil && c == r.opts.QuoteChar && (lead.Len() == 0 || r.opts.Trim != TrimNone) {
		return r.readQuoted()
	}

	var b strings.Builder
	b.WriteString(lead.String())
	for {
		if errors.Is(err, io.EOF) {
			return r.trimUnquoted(b.String()), true, nil
		}
		if err != nil {
			return "", false, err
		}
		switch {
		case c == r.opts.Separator:
			return r.trimUnquoted(b.String()), false, nil
		case c == '\n':
			return r.trimUnquoted(b.String()), true, nil
		case c == '\r':
			return r.trimUnquoted(b.String()), true, r.skipLF()
		case c == r.opts.QuoteChar:
			return "", false, r.errorf(ErrBareQuote)
		case c == r.opts.EscapeChar && c != 0:
			if n, ok := r.unescape(false); ok {
				b.WriteRune(n)
			} else {
				b.WriteRune(c)
			}
		default:
			b.WriteRune(c)
		}
		c, err = r.next()
	}
}

func (r *Reader) readQuoted() (string, bool, error) {
	var b strings.Builder
	for {
		c, err := r.next()
		if errors.Is(err, io.EOF) {
			return "", false, r.errorf(ErrUnterminatedQuote)
		}
		if err != nil {
			return "", false, err
		}
		switch {
		case c == r.opts.QuoteChar:
			if r.opts.QuoteEscape == r.opts.QuoteChar {
				if n, perr := r.peek(); perr == nil && n == r.opts.QuoteChar {
					r.mustNext()
					b.WriteRune(n)
					continue
				}
			}
			return r.afterQuoted(b.String())
		case c == r.opts.QuoteEscape || (c == r.opts.EscapeChar && c != 0):
			if n, ok := r.unescape(true); ok {
				b.WriteRune(n)
			} else {
				b.WriteRune(c)
			}
		default:
			b.WriteRune(c)
		}
	}
}

// afterQuoted consumes what follows a closing quote up to the cell end.
func (r *Reader) afterQuoted(cell string) (string, bool, error) {
	if r.opts.Trim == TrimAll {
		cell = strings.TrimSpace(cell)
	}
	for {
		c, err := r.next()
		if errors.Is(err, io.EOF) {
			return cell, true, nil
		}
		if err != nil {
			return "", false, err
		}
		switch {
		case c == r.opts.Separator:
			return cell, false, nil
		case c == '\n':
			return cell, true, nil
		case c == '\r':
			return cell, true, r.skipLF()
		case (c == ' ' || c == '\t') && r.opts.Trim != TrimNone:
		default:
			return "", false, r.errorf(ErrExtraneousData)
		}
	}
}

// unescape inspects the rune after an escape char that was just read. When
// the pair is an escape sequence the escaped rune is consumed and returned.
func (r *Reader) unescape(inQuotes bool) (rune, bool) {
	esc := r.lastRune
	n, err := r.peek()
	if err != nil {
		return 0, false
	}
	switch {
	case inQuotes && esc == r.opts.QuoteEscape && n == r.opts.QuoteChar:
	case esc == r.opts.EscapeChar && slices.Contains(r.opts.MustEscape, n):
	default:
		return 0, false
	}
	r.mustNext()
	return n, true
}

func (r *Reader) trimUnquoted(s string) string {
	if r.opts.Trim == TrimNone {
		return s
	}
	return strings.Trim(s, " \t")
}

func (r *Reader) skipLF() error {
	n, err := r.peek()
	if err == nil && n == '\n' {
		r.mustNext()
		return nil
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (r *Reader) skipLine() error {
	for {
		c, err := r.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
		if c == '\r' {
			return r.skipLF()
		}
	}
}

func (r *Reader) next() (rune, error) {
	c, _, err := r.br.ReadRune()
	if err != nil {
		return 0, err
	}
	r.prevLine, r.prevCol = r.line, r.col
	r.lastRune = c
	if c == '\n' {
		r.line++
		r.col = 0
	} else {
		r.col++
	}
	return c, nil
}

// unread steps back over the rune returned by the last next call.
func (r *Reader) unread() {
	_ = r.br.UnreadRune()
	r.line, r.col = r.prevLine, r.prevCol
}

func (r *Reader) peek() (rune, error) {
	c, _, err := r.br.ReadRune()
	if err != nil {
		return 0, err
	}
	_ = r.br.UnreadRune()
	return c, nil
}

// mustNext consumes a rune already seen through peek.
func (r *Reader) mustNext() { _, _ = r.next() }

func (r *Reader) errorf(err error) error {
	return &ParseError{Line: r.line, Column: r.col, Err: err}
}
