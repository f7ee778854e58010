// Package openapi renders the field catalog as an OpenAPI document so form
// renderers can build intake forms straight from the registry.
package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	casefile "github.com/goliatone/go-casefile"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator. It
// understands registry values (*casefile.Registry, []casefile.Field) and
// renders rich form schemas for them; any other value is reflected into a
// plain JSON schema.
func NewGenerator(opts ...GeneratorOption) casefile.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

func (g generator) Generate(value any) (casefile.SchemaDocument, error) {
	var schema map[string]any
	var err error

	switch typed := value.(type) {
	case *casefile.Registry:
		schema = schemaForFields(registryFields(typed))
	case []casefile.Field:
		schema = schemaForFields(typed)
	case casefile.Field:
		schema = schemaForFields([]casefile.Field{typed})
	case casefile.Document:
		schema, err = buildSchema(reflect.ValueOf(typed))
	default:
		schema, err = buildSchema(reflect.ValueOf(value))
	}
	if err != nil {
		return casefile.SchemaDocument{}, err
	}
	if schema == nil {
		schema = map[string]any{"type": "null"}
	}

	document, err := buildDocument(g.config, schema)
	if err != nil {
		return casefile.SchemaDocument{}, err
	}
	return casefile.SchemaDocument{
		Format:   casefile.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

func registryFields(registry *casefile.Registry) []casefile.Field {
	if registry == nil {
		return nil
	}
	fields := make([]casefile.Field, 0, registry.Len())
	for _, id := range registry.IDs() {
		if field, ok := registry.FieldByID(id); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// schemaForFields builds an object schema with one property per catalog
// field, carrying form metadata under x-formgen.
func schemaForFields(fields []casefile.Field) map[string]any {
	properties := make(map[string]any, len(fields))
	var required []string

	for _, field := range fields {
		property := map[string]any{
			"type":  typeFor(field.Type),
			"title": field.Label,
		}
		if format := formatFor(field.Type); format != "" {
			property["format"] = format
		}
		if len(field.Options) > 0 {
			values := make([]any, 0, len(field.Options))
			for _, opt := range field.Options {
				values = append(values, opt.Value)
			}
			property["enum"] = values
		}
		if rules := field.Validation; rules != nil {
			if rules.Pattern != "" {
				property["pattern"] = rules.Pattern
			}
			if rules.Min != nil {
				property["minimum"] = *rules.Min
			}
			if rules.Max != nil {
				property["maximum"] = *rules.Max
			}
			if rules.MinLength != nil {
				property["minLength"] = *rules.MinLength
			}
			if rules.MaxLength != nil {
				property["maxLength"] = *rules.MaxLength
			}
			if rules.Required {
				required = append(required, field.ID)
			}
		}
		property["x-formgen"] = map[string]any{
			"widget":     string(field.Type),
			"category":   string(field.Category),
			"importance": string(field.Importance),
			"path":       field.PrimarySource.Path,
		}
		properties[field.ID] = property
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}

func typeFor(fieldType casefile.FieldType) string {
	switch fieldType {
	case casefile.FieldNumber:
		return "number"
	case casefile.FieldBoolean, casefile.FieldCheckbox:
		return "boolean"
	case casefile.FieldMultiSelect, casefile.FieldArray:
		return "array"
	case casefile.FieldObject:
		return "object"
	default:
		return "string"
	}
}

func formatFor(fieldType casefile.FieldType) string {
	switch fieldType {
	case casefile.FieldEmail:
		return "email"
	case casefile.FieldURL:
		return "uri"
	default:
		return ""
	}
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"type": "null"}, nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return map[string]any{
				"type":   "string",
				"format": "date-time",
			}, nil
		}
		return schemaForStruct(rv)
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv)
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", rv.Type().String()),
		}, nil
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}

	keys := rv.MapKeys()
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	sort.Strings(names)

	properties := make(map[string]any, len(names))
	for _, name := range names {
		child, err := buildSchema(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	properties := map[string]any{}

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if name == "" {
			continue
		}

		child, err := buildSchema(rv.Field(i))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForSlice(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{
			"type":   "string",
			"format": "byte",
		}, nil
	}

	length := rv.Len()
	var itemSchema map[string]any
	var err error
	if length > 0 {
		itemSchema, err = buildSchema(rv.Index(0))
		if err != nil {
			return nil, err
		}
	} else {
		itemSchema = map[string]any{}
	}
	return map[string]any{
		"type":  "array",
		"items": itemSchema,
	}, nil
}
