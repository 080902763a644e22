package csvmap

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
)

// DefaultTimeLayout renders time.Time cells without a field format. Values
// are converted to UTC first.
const DefaultTimeLayout = "2006-01-02T15:04:05.000000Z"

// autoLayout names the layout-detecting parse in error reports.
const autoLayout = "auto"

// fallbackLayouts are tried in order when a time cell has no field format and
// layout detection fails.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"02-Jan-2006 15:04:05",
	"02-Jan-2006 03:04:05 PM",
	"02-Jan-2006 15:04:05.000000",
	"02-Jan-2006 03:04:05.000000 PM",
	"02-Jan-2006 03.04.05 PM",
	"02-Jan-2006 15.04.05",
	"02-Jan-2006 15.04.05.000000",
	"02-Jan-06 03.04.05.000000 PM",
	"02-Jan-06 15:04:05",
	"02-Jan-06 03:04:05 PM",
	"02-Jan-06 15:04:05.000000",
	"02-Jan-06 03:04:05.000000 PM",
	"02-Jan-06 03.04.05 PM",
	"02-Jan-06 15.04.05",
	"02-Jan-06 15.04.05.000000",
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()

	scannerType         = reflect.TypeFor[sql.Scanner]()
	valuerType          = reflect.TypeFor[driver.Valuer]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// ConversionError reports a cell that could not be converted to its field type.
type ConversionError struct {
	Row     int // 1-based data row, 0 when unknown
	Column  string
	Value   string
	Type    reflect.Type
	Formats []string
	Err     error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString("csvmap: ")
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, "column %q: ", e.Column)
	}
	fmt.Fprintf(&b, "cannot convert %q to %v", e.Value, e.Type)
	if len(e.Formats) > 0 {
		fmt.Fprintf(&b, " using formats [%s]", strings.Join(e.Formats, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is matches [ErrConversion].
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// Conversion is the outcome of parsing one cell. Fallback is set when the
// lenient path substituted the zero value; Err then holds the cause.
type Conversion struct {
	Value    reflect.Value
	Fallback bool
	Err      error
}

// Converter converts between field values and cell text.
type Converter struct {
	// Strict turns lenient fallbacks into errors.
	Strict bool
}

// Format renders v as cell text. layout applies to time values only.
func (c Converter) Format(v reflect.Value, layout string) string {
	if !v.IsValid() {
		return ""
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return ""
		}
		if v.Type().Implements(valuerType) {
			break
		}
		return c.Format(v.Elem(), layout)
	}
	if v.Type() == timeType {
		return formatTime(v.Interface().(time.Time), layout)
	}
	if v.Type().Implements(valuerType) {
		val, err := v.Interface().(driver.Valuer).Value()
		if err != nil || val == nil {
			return ""
		}
		return c.Format(reflect.ValueOf(val), layout)
	}
	if v.Type().Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return ""
		}
		return string(text)
	}
	if s, err := cast.ToStringE(v.Interface()); err == nil {
		return s
	}
	return fmt.Sprint(v.Interface())
}

func formatTime(t time.Time, layout string) string {
	if layout == "" {
		return t.UTC().Format(DefaultTimeLayout)
	}
	return t.Format(layout)
}

// Parse converts cell text into a value of type t.
//
// time.Time, pointer, and sql.Scanner targets are strict and return a
// *ConversionError on bad input. Other targets are lenient: a failed
// coercion yields the zero value with Fallback set, or an error when the
// converter is strict.
func (c Converter) Parse(s string, t reflect.Type, layout string) (Conversion, error) {
	switch {
	case t == timeType:
		tm, err := parseTime(s, layout)
		if err != nil {
			return Conversion{}, err
		}
		return Conversion{Value: reflect.ValueOf(tm)}, nil
	case t.Kind() == reflect.Pointer:
		if s == "" {
			return Conversion{Value: reflect.Zero(t)}, nil
		}
		inner, err := Converter{Strict: true}.Parse(s, t.Elem(), layout)
		if err != nil {
			var ce *ConversionError
			if errors.As(err, &ce) {
				ce.Type = t
			}
			return Conversion{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner.Value)
		return Conversion{Value: p}, nil
	case reflect.PointerTo(t).Implements(scannerType):
		p := reflect.New(t)
		if s == "" {
			return Conversion{Value: p.Elem()}, nil
		}
		if err := p.Interface().(sql.Scanner).Scan(s); err != nil {
			return Conversion{}, &ConversionError{Value: s, Type: t, Err: err}
		}
		return Conversion{Value: p.Elem()}, nil
	}

	v, err := coerce(s, t)
	if err == nil {
		return Conversion{Value: v}, nil
	}
	if c.Strict {
		return Conversion{}, &ConversionError{Value: s, Type: t, Err: err}
	}
	return Conversion{Value: reflect.Zero(t), Fallback: true, Err: err}, nil
}

func parseTime(s, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, &ConversionError{Value: s, Type: timeType, Formats: []string{layout}, Err: err}
		}
		return t, nil
	}
	formats := append([]string{autoLayout}, fallbackLayouts...)
	if strings.TrimSpace(s) == "" {
		return time.Time{}, &ConversionError{Value: s, Type: timeType, Formats: formats}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t, nil
	}
	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ConversionError{Value: s, Type: timeType, Formats: formats}
}

// coerce converts s to t with general-purpose rules.
func coerce(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if t == durationType {
		d, err := cast.ToDurationE(s)
		if err != nil {
			return v, err
		}
		v.SetInt(int64(d))
		return v, nil
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
		return v, err
	}
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Always base 10 so zero-padded cells like "010" keep their value.
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return v, err
		}
		if v.OverflowFloat(f) {
			return v, fmt.Errorf("%g overflows %v", f, t)
		}
		v.SetFloat(f)
	default:
		return v, fmt.Errorf("%w: no conversion from text to %v", ErrUnsupportedType, t)
	}
	return v, nil
}
