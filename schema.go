package csvmap

import (
	"cmp"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Unordered is the Order of a field without an explicit position. It sorts
// before every explicit order.
const Unordered = -1

const tagKey = "csv"

// FieldDescriptor is the static metadata of one record field.
type FieldDescriptor struct {
	// Field is the Go struct field name.
	Field string
	// Name overrides the column name. Empty means Field.
	Name string
	// Type is the declared Go type of the field.
	Type reflect.Type
	// Order positions the column; see [Unordered].
	Order int
	// Format is a time layout applied to time.Time fields.
	Format string

	index []int
}

// NewFieldDescriptor returns a descriptor for the named struct field with
// Order set to [Unordered], matching an untagged field.
func NewFieldDescriptor(field string) FieldDescriptor {
	return FieldDescriptor{Field: field, Order: Unordered}
}

// Column returns the column name: Name if set, else Field.
func (d FieldDescriptor) Column() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Field
}

// Ambiguity describes fields that tie on both order and column name, so
// only declaration order decides their relative position.
type Ambiguity struct {
	Column string
	Order  int
	Fields []string
}

// Schema is the resolved, ordered field list of one record type.
type Schema struct {
	typ         reflect.Type
	fields      []FieldDescriptor
	options     FormatOptions
	ambiguities []Ambiguity
}

// Type returns the record struct type.
func (s *Schema) Type() reflect.Type { return s.typ }

// Fields returns the descriptors in column order.
func (s *Schema) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Header returns the column names in order.
func (s *Schema) Header() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Column()
	}
	return out
}

// Options returns the type's default options.
func (s *Schema) Options() FormatOptions { return s.options.clone() }

// Ambiguities reports order-and-name ties found during resolution.
func (s *Schema) Ambiguities() []Ambiguity { return slices.Clone(s.ambiguities) }

// Registry memoizes schemas by record type. Each type is resolved at most
// once; later lookups are lock-free.
type Registry struct {
	schemas sync.Map // reflect.Type -> *Schema
	mu      sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// DefaultRegistry backs [NewCodec] and the package-level functions.
var DefaultRegistry = NewRegistry()

// Schema returns the schema for t, resolving it on first use. Pointer types
// share the schema of their struct element.
func (r *Registry) Schema(t reflect.Type) (*Schema, error) {
	t = recordStruct(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrUnsupportedType, t)
	}
	if s, ok := r.schemas.Load(t); ok {
		return s.(*Schema), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schemas.Load(t); ok {
		return s.(*Schema), nil
	}
	s, err := resolve(t)
	if err != nil {
		return nil, err
	}
	r.schemas.Store(t, s)
	slog.Debug("resolved schema", "component", "csvmap", "type", t.String(), "columns", len(s.fields))
	return s, nil
}

// SchemaOf returns the schema for T from the default registry.
func SchemaOf[T any]() (*Schema, error) {
	return DefaultRegistry.Schema(reflect.TypeFor[T]())
}

func recordStruct(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func resolve(t reflect.Type) (*Schema, error) {
	fields, err := describe(t)
	if err != nil {
		return nil, err
	}
	sortFields(fields)
	s := &Schema{
		typ:         t,
		fields:      fields,
		options:     typeOptions(t),
		ambiguities: findAmbiguities(fields),
	}
	for _, a := range s.ambiguities {
		slog.Warn("ambiguous column order", "component", "csvmap", "type", t.String(),
			"column", a.Column, "order", a.Order, "fields", a.Fields)
	}
	return s, nil
}

// sortFields orders by Order, then column name, keeping declaration order
// for exact ties.
func sortFields(fields []FieldDescriptor) {
	slices.SortStableFunc(fields, func(a, b FieldDescriptor) int {
		return cmp.Or(
			cmp.Compare(a.Order, b.Order),
			strings.Compare(a.Column(), b.Column()),
		)
	})
}

func findAmbiguities(sorted []FieldDescriptor) []Ambiguity {
	var out []Ambiguity
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Order == sorted[i].Order && sorted[j].Column() == sorted[i].Column() {
			j++
		}
		if j-i > 1 {
			a := Ambiguity{Column: sorted[i].Column(), Order: sorted[i].Order}
			for _, f := range sorted[i:j] {
				a.Fields = append(a.Fields, f.Field)
			}
			out = append(out, a)
		}
		i = j
	}
	return out
}

func typeOptions(t reflect.Type) FormatOptions {
	if o, ok := implements[Optioned](t); ok {
		return o.CSVOptions().clone()
	}
	return DefaultOptions()
}

// implements reports whether the zero value of t (or of *t) implements I.
func implements[I any](t reflect.Type) (I, bool) {
	if v, ok := reflect.Zero(t).Interface().(I); ok {
		return v, true
	}
	v, ok := reflect.New(t).Interface().(I)
	return v, ok
}

func describe(t reflect.Type) ([]FieldDescriptor, error) {
	if d, ok := implements[Described](t); ok {
		return bindDescriptors(t, d.CSVFields())
	}
	var out []FieldDescriptor
	for _, sf := range reflect.VisibleFields(t) {
		tag := sf.Tag.Get(tagKey)
		if tag == "-" || sf.Anonymous || !sf.IsExported() || throughPointer(t, sf.Index) {
			continue
		}
		d, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: %v.%s: %w", ErrInvalidSchema, t, sf.Name, err)
		}
		d.Field = sf.Name
		d.Type = sf.Type
		d.index = sf.Index
		out = append(out, d)
	}
	return out, nil
}

func bindDescriptors(t reflect.Type, descs []FieldDescriptor) ([]FieldDescriptor, error) {
	out := make([]FieldDescriptor, 0, len(descs))
	for _, d := range descs {
		sf, ok := t.FieldByName(d.Field)
		if !ok || !sf.IsExported() || throughPointer(t, sf.Index) {
			return nil, fmt.Errorf("%w: %v has no exported field %q", ErrInvalidSchema, t, d.Field)
		}
		d.Type = sf.Type
		d.index = sf.Index
		out = append(out, d)
	}
	return out, nil
}

// throughPointer reports whether a promoted field is reached via an embedded
// pointer, which could be nil at access time.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		t = t.Field(i).Type
		if t.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}

// parseTag parses `name,order=N,format=LAYOUT`. The format key consumes the
// rest of the tag so layouts may contain commas.
func parseTag(tag string) (FieldDescriptor, error) {
	d := FieldDescriptor{Order: Unordered}
	name, rest, _ := strings.Cut(tag, ",")
	d.Name = strings.TrimSpace(name)
	for rest != "" {
		if layout, ok := strings.CutPrefix(rest, "format="); ok {
			d.Format = layout
			break
		}
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		key, val, _ := strings.Cut(opt, "=")
		switch strings.TrimSpace(key) {
		case "order":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return d, fmt.Errorf("bad order %q", val)
			}
			d.Order = n
		case "":
		default:
			return d, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return d, nil
}
