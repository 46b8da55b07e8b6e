package route

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gaborage/routekit/schema"
)

// ParamsFromStruct derives parameters from the tags of a struct type:
//
//	type listCourses struct {
//		ID   string `param:"id" validate:"uuid"`
//		Page int    `query:"page" default:"1" doc:"Page number"`
//		Lang string `header:"Accept-Language" validate:"alpha"`
//	}
//
// Fields without a param, query or header tag are skipped.
func ParamsFromStruct(v any) ([]*Parameter, error) {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("params from struct: %T is not a struct", v)
	}

	var params []*Parameter
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		in, name := parseLocation(field.Tag)
		if in == "" {
			continue
		}

		constraints := parseValidateTag(field.Tag.Get("validate"))
		p := &Parameter{
			Name: name,
			In:   in,
			Type: fieldType(field.Type, constraints),
		}
		if _, ok := constraints["required"]; ok {
			p.Required = true
		}
		if doc := field.Tag.Get("doc"); doc != "" {
			p.Description = doc
		} else {
			p.Description = field.Tag.Get("description")
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			val, err := p.Type.Coerce(def)
			if err != nil {
				return nil, fmt.Errorf("params from struct: field %s default: %w", field.Name, err)
			}
			p.Default = val
		}
		if ex := field.Tag.Get("example"); ex != "" {
			p.Example = &schema.Example{Name: p.ComponentName(), Value: ex}
		}
		if re, ok := constraints["regexp"]; ok {
			p.Pattern = re
		}
		_, p.Deprecated = field.Tag.Lookup("deprecated")

		if err := p.Check(); err != nil {
			return nil, fmt.Errorf("params from struct: field %s: %w", field.Name, err)
		}
		params = append(params, p)
	}
	return params, nil
}

// MustParamsFromStruct is like ParamsFromStruct but panics on error.
func MustParamsFromStruct(v any) []*Parameter {
	params, err := ParamsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return params
}

func parseLocation(tag reflect.StructTag) (Location, string) {
	if name := tag.Get("param"); name != "" {
		return InPath, name
	}
	if name := tag.Get("query"); name != "" {
		return InQuery, name
	}
	if name := tag.Get("header"); name != "" {
		return InHeader, name
	}
	return "", ""
}

// parseValidateTag splits "required,min=1,uuid" into a constraint map.
func parseValidateTag(validate string) map[string]string {
	constraints := map[string]string{}
	for _, part := range strings.Split(validate, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			constraints[part] = "true"
			continue
		}
		constraints[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return constraints
}

// fieldType picks the semantic type from format constraints first, then the
// Go kind.
func fieldType(t reflect.Type, constraints map[string]string) Type {
	for _, candidate := range []Type{TypeUUID, TypeEmail, TypeURL, TypeSlug, TypeAlphaExt, TypeAlphaNum, TypeAlpha} {
		if _, ok := constraints[string(candidate)]; ok {
			return candidate
		}
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.Bool:
		return TypeBool
	}
	if _, ok := constraints["raw"]; ok {
		return TypeRaw
	}
	return TypeText
}
