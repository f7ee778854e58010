package casefile

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrPathWriteUnsupported signals a Set through an aggregated ([]) path.
// Aggregated paths are read-only: writing through one would corrupt data.
var ErrPathWriteUnsupported = errors.New("casefile: cannot write through an aggregated [] path")

// ErrInvalidPath signals a path string the parser cannot understand.
var ErrInvalidPath = errors.New("casefile: invalid path")

type segmentKind int

const (
	segmentField segmentKind = iota
	segmentIndex
	segmentFlatten
)

type segment struct {
	kind  segmentKind
	name  string
	index int
}

// Path is a parsed document path. Parse once and reuse; evaluation never
// re-splits the raw string.
type Path struct {
	raw      string
	segments []segment
}

// String returns the raw path string.
func (p Path) String() string {
	return p.raw
}

// Aggregated reports whether the path contains an array-flatten marker.
func (p Path) Aggregated() bool {
	for _, seg := range p.segments {
		if seg.kind == segmentFlatten {
			return true
		}
	}
	return false
}

// ParsePath parses a dotted path such as "modules.overview.crmName". A
// segment suffixed with [] ("modules.leadsAndSales.leadSources[].channel")
// descends into an array and evaluates the remaining segments against every
// element. At most one [] marker is supported per path; paths needing more
// are out of scope. Numeric segments index into arrays
// ("implementationSpec.automations.0.requirements.trigger").
func ParsePath(raw string) (Path, error) {
	if strings.TrimSpace(raw) == "" {
		return Path{}, fmt.Errorf("%w: path must not be empty", ErrInvalidPath)
	}

	parts := strings.Split(raw, ".")
	segments := make([]segment, 0, len(parts))
	flattens := 0
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, raw)
		}
		if name, ok := strings.CutSuffix(part, "[]"); ok {
			if name == "" {
				return Path{}, fmt.Errorf("%w: %q has an unnamed [] segment", ErrInvalidPath, raw)
			}
			flattens++
			if flattens > 1 {
				return Path{}, fmt.Errorf("%w: %q has more than one [] segment", ErrInvalidPath, raw)
			}
			segments = append(segments, segment{kind: segmentFlatten, name: name})
			continue
		}
		if index, err := strconv.Atoi(part); err == nil {
			if index < 0 {
				return Path{}, fmt.Errorf("%w: %q has a negative index", ErrInvalidPath, raw)
			}
			segments = append(segments, segment{kind: segmentIndex, index: index})
			continue
		}
		segments = append(segments, segment{kind: segmentField, name: part})
	}

	if segments[len(segments)-1].kind == segmentFlatten {
		return Path{}, fmt.Errorf("%w: %q ends on a [] segment without an inner field", ErrInvalidPath, raw)
	}

	return Path{raw: raw, segments: segments}, nil
}

// Get reads the value at path inside document, which may be a Document, a
// struct, or plain maps and slices. Missing segments yield (nil, false),
// never a panic. An aggregated path resolves its array, evaluates the inner
// segments per element, and drops empty values: zero hits is not found, one
// hit is returned as-is, several numeric hits are summed, anything else
// returns the first hit.
func Get(document any, path string) (any, bool) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return parsed.Get(document)
}

// Get evaluates the parsed path against document.
func (p Path) Get(document any) (any, bool) {
	return evalSegments(reflect.ValueOf(document), p.segments)
}

func evalSegments(current reflect.Value, segments []segment) (any, bool) {
	for i, seg := range segments {
		current = indirect(current)
		if !current.IsValid() {
			return nil, false
		}

		switch seg.kind {
		case segmentField:
			next, ok := childByName(current, seg.name)
			if !ok {
				return nil, false
			}
			current = next
		case segmentIndex:
			if current.Kind() != reflect.Slice && current.Kind() != reflect.Array {
				return nil, false
			}
			if seg.index >= current.Len() {
				return nil, false
			}
			current = current.Index(seg.index)
		case segmentFlatten:
			next, ok := childByName(current, seg.name)
			if !ok {
				return nil, false
			}
			return aggregate(indirect(next), segments[i+1:])
		}
	}

	current = indirect(current)
	if !current.IsValid() {
		return nil, false
	}
	return current.Interface(), true
}

// aggregate computes the inner segments for every array element, keeps the
// meaningful values, and reduces them to a single result.
func aggregate(array reflect.Value, rest []segment) (any, bool) {
	if !array.IsValid() || (array.Kind() != reflect.Slice && array.Kind() != reflect.Array) {
		return nil, false
	}
	if array.Len() == 0 {
		return nil, false
	}

	values := make([]any, 0, array.Len())
	for i := 0; i < array.Len(); i++ {
		value, ok := evalSegments(array.Index(i), rest)
		if !ok || isEmptyValue(value) {
			continue
		}
		values = append(values, value)
	}

	switch len(values) {
	case 0:
		return nil, false
	case 1:
		return values[0], true
	}

	if sum, ok := sumNumeric(values); ok {
		return sum, true
	}
	return values[0], true
}

// Set writes value at path inside document and returns the updated copy.
// The input document is never mutated. Intermediate map records are created
// as needed; writing through an aggregated path fails with
// ErrPathWriteUnsupported and returns the input unchanged.
func Set(document Document, path string, value any) (Document, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return document, err
	}
	return parsed.Set(document, value)
}

// Set writes value at the parsed path.
func (p Path) Set(document Document, value any) (Document, error) {
	if p.Aggregated() {
		return document, fmt.Errorf("%w: %s", ErrPathWriteUnsupported, p.raw)
	}
	if len(p.segments) == 0 {
		return document, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	updated := document.Clone()
	if err := setSegments(reflect.ValueOf(&updated).Elem(), p.segments, value, p.raw); err != nil {
		return document, err
	}
	return updated, nil
}

func setSegments(current reflect.Value, segments []segment, value any, raw string) error {
	for i, seg := range segments {
		last := i == len(segments)-1
		current = materialize(current)
		if !current.IsValid() {
			return fmt.Errorf("%w: %q is not addressable at segment %d", ErrInvalidPath, raw, i)
		}

		switch seg.kind {
		case segmentField:
			switch current.Kind() {
			case reflect.Map:
				if current.Type().Key().Kind() != reflect.String {
					return fmt.Errorf("%w: %q traverses a non-string map key", ErrInvalidPath, raw)
				}
				key := reflect.ValueOf(seg.name).Convert(current.Type().Key())
				if last {
					converted, err := convertForMap(current.Type().Elem(), value)
					if err != nil {
						return fmt.Errorf("casefile: set %q: %w", raw, err)
					}
					current.SetMapIndex(key, converted)
					return nil
				}
				child := current.MapIndex(key)
				child = indirect(child)
				if !child.IsValid() || !isRecord(child) {
					child = reflect.ValueOf(map[string]any{})
				} else {
					// Detach so the write survives SetMapIndex below.
					child = cloneValue(child)
				}
				if err := setSegments(child, segments[i+1:], value, raw); err != nil {
					return err
				}
				converted, err := convertForMap(current.Type().Elem(), child.Interface())
				if err != nil {
					return fmt.Errorf("casefile: set %q: %w", raw, err)
				}
				current.SetMapIndex(key, converted)
				return nil
			case reflect.Struct:
				field, ok := structFieldByName(current, seg.name)
				if !ok {
					return fmt.Errorf("%w: %q has no field %q", ErrInvalidPath, raw, seg.name)
				}
				if !field.CanSet() {
					return fmt.Errorf("%w: %q field %q is not settable", ErrInvalidPath, raw, seg.name)
				}
				if last {
					return assign(field, value, raw)
				}
				current = field
			default:
				return fmt.Errorf("%w: %q cannot descend into %s", ErrInvalidPath, raw, current.Kind())
			}
		case segmentIndex:
			if current.Kind() != reflect.Slice {
				return fmt.Errorf("%w: %q indexes a %s", ErrInvalidPath, raw, current.Kind())
			}
			if seg.index >= current.Len() {
				return fmt.Errorf("%w: %q index %d out of range (len %d)", ErrInvalidPath, raw, seg.index, current.Len())
			}
			elem := current.Index(seg.index)
			if last {
				return assign(elem, value, raw)
			}
			current = elem
		case segmentFlatten:
			return fmt.Errorf("%w: %s", ErrPathWriteUnsupported, raw)
		}
	}
	return nil
}

// materialize dereferences pointers and interfaces, allocating nil pointers
// and nil maps so intermediate records exist before the write.
func materialize(v reflect.Value) reflect.Value {
	for {
		switch v.Kind() {
		case reflect.Pointer:
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		case reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		case reflect.Map:
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.MakeMap(v.Type()))
			}
			return v
		default:
			return v
		}
	}
}

func assign(target reflect.Value, value any, raw string) error {
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	incoming := reflect.ValueOf(value)
	if incoming.Type().AssignableTo(target.Type()) {
		target.Set(incoming)
		return nil
	}
	if incoming.Type().ConvertibleTo(target.Type()) {
		target.Set(incoming.Convert(target.Type()))
		return nil
	}
	return fmt.Errorf("%w: %q cannot hold %T", ErrInvalidPath, raw, value)
}

func convertForMap(elem reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(elem), nil
	}
	incoming := reflect.ValueOf(value)
	if incoming.Type().AssignableTo(elem) {
		return incoming, nil
	}
	if incoming.Type().ConvertibleTo(elem) {
		return incoming.Convert(elem), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %T does not fit map element %s", value, elem)
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isRecord(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

// childByName resolves a named child of a map or struct value.
func childByName(v reflect.Value, name string) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		child := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !child.IsValid() {
			return reflect.Value{}, false
		}
		return child, true
	case reflect.Struct:
		return structFieldByName(v, name)
	default:
		return reflect.Value{}, false
	}
}

// structFieldByName matches a struct field by its json tag name, falling
// back to the Go field name.
func structFieldByName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		tagName, _, _ := strings.Cut(tag, ",")
		if tagName == name || (tagName == "" && field.Name == name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// isEmptyValue reports whether value carries no meaningful user input:
// nil, empty strings, zero numbers, false, and empty collections all count
// as empty.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// sumNumeric adds values when every entry is numeric. Integer-only inputs
// produce an int result, otherwise a float64.
func sumNumeric(values []any) (any, bool) {
	total := 0.0
	integral := true
	for _, value := range values {
		v := indirect(reflect.ValueOf(value))
		if !v.IsValid() {
			return nil, false
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			total += float64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			total += float64(v.Uint())
		case reflect.Float32, reflect.Float64:
			total += v.Float()
			integral = false
		default:
			return nil, false
		}
	}
	if integral {
		return int(total), true
	}
	return total, true
}
