package formstate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldDescriptor describes one derivable form field: its flattened name,
// the inferred Go type, and the default rendered from the model value.
type FieldDescriptor struct {
	Name    string
	Type    string
	Default string
}

// DeriveFields flattens model into field descriptors. Maps and structs
// recurse with dot-joined names; struct fields honour a `form:"name"` tag
// and `form:"-"` opts a field out. Scalars render through fmt.
func DeriveFields(model any) []FieldDescriptor {
	return deriveFieldDescriptors(reflect.ValueOf(model), "")
}

// FieldsFromModel converts model into form fields, using each descriptor's
// rendered value as the server-side default.
func FieldsFromModel(model any) []Field {
	descriptors := DeriveFields(model)
	fields := make([]Field, 0, len(descriptors))
	for _, descriptor := range descriptors {
		fields = append(fields, Field{
			Name:    descriptor.Name,
			Default: descriptor.Default,
		})
	}
	return fields
}

// NewFormFromModel builds a form whose field set mirrors the model's
// derivable fields.
func NewFormFromModel(id string, model any, opts ...FormOption) (*Form, error) {
	fields := FieldsFromModel(model)
	combined := append([]FormOption{WithFields(fields...)}, opts...)
	return NewForm(id, combined...)
}

func deriveFieldDescriptors(value reflect.Value, prefix string) []FieldDescriptor {
	if !value.IsValid() {
		return nil
	}

	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Name: prefix, Type: "nil"}}
		}
		return deriveFieldDescriptors(value.Elem(), prefix)
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return scalarDescriptor(value, prefix)
		}
		keys := make([]string, 0, value.Len())
		for _, key := range value.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			next := joinFieldName(prefix, key)
			fields = append(fields, deriveFieldDescriptors(value.MapIndex(reflect.ValueOf(key)), next)...)
		}
		return fields
	case reflect.Struct:
		var fields []FieldDescriptor
		structType := value.Type()
		for i := 0; i < structType.NumField(); i++ {
			field := structType.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Tag.Get("form")
			if name == "-" {
				continue
			}
			if name == "" {
				name = strings.ToLower(field.Name)
			}
			next := joinFieldName(prefix, name)
			fields = append(fields, deriveFieldDescriptors(value.Field(i), next)...)
		}
		return fields
	default:
		return scalarDescriptor(value, prefix)
	}
}

func scalarDescriptor(value reflect.Value, prefix string) []FieldDescriptor {
	if prefix == "" {
		return nil
	}
	return []FieldDescriptor{{
		Name:    prefix,
		Type:    value.Type().String(),
		Default: renderDefault(value),
	}}
}

func renderDefault(value reflect.Value) string {
	if value.Kind() == reflect.String {
		return value.String()
	}
	if value.IsZero() {
		return ""
	}
	return fmt.Sprintf("%v", value.Interface())
}

func joinFieldName(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
