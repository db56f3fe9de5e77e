package sane

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Marshal encodes v, which must be a struct or pointer to struct whose
// fields carry `sane:"name"` tags, into its canonical SANE text form.
//
// Encoding proceeds in two passes so the output always parses back with the
// same section boundaries: scalar and array fields are written as top-level
// assignments first, in struct declaration order, then every nested-struct
// field is written afterward as a "[name]" section, also in declaration
// order. Add ",omitempty" to a tag to skip zero-valued fields entirely.
func Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("sane: cannot marshal nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sane: Marshal requires a struct, got %s", rv.Kind())
	}

	var top strings.Builder
	var sections strings.Builder

	fields := visibleFields(rv.Type())
	for _, f := range fields {
		name, omitempty, skip := tagOf(f)
		if skip {
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		if isNestedSection(f.Type) {
			continue
		}
		if omitempty && isEmptyValue(fv) {
			continue
		}
		lit, err := encodeScalarOrArray(fv)
		if err != nil {
			return nil, &FieldError{Field: name, Err: err}
		}
		fmt.Fprintf(&top, "%s = %s\n", name, lit)
	}

	for _, f := range fields {
		name, omitempty, skip := tagOf(f)
		if skip {
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		if !isNestedSection(f.Type) {
			continue
		}
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			continue
		}
		if omitempty && isEmptyValue(fv) {
			continue
		}
		sv := fv
		if sv.Kind() == reflect.Ptr {
			sv = sv.Elem()
		}
		var body string
		var err error
		if sv.Kind() == reflect.Map {
			body, err = encodeMapSectionBody(sv)
		} else {
			body, err = encodeSectionBody(sv)
		}
		if err != nil {
			return nil, &FieldError{Field: name, Err: err}
		}
		fmt.Fprintf(&sections, "\n[%s]\n%s", name, body)
	}

	return []byte(top.String() + sections.String()), nil
}

// encodeMapSectionBody encodes a map[string]V field as the key = value
// lines of a "[name]" section, sorted by key so the output is stable.
func encodeMapSectionBody(v reflect.Value) (string, error) {
	if v.Type().Key().Kind() != reflect.String {
		return "", fmt.Errorf("sane: map section key must be string, got %s", v.Type().Key())
	}
	keys := make([]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		ev := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
		lit, err := encodeScalarOrArray(ev)
		if err != nil {
			return "", fmt.Errorf("key %s: %w", k, err)
		}
		fmt.Fprintf(&sb, "%s = %s\n", k, lit)
	}
	return sb.String(), nil
}

func encodeSectionBody(rv reflect.Value) (string, error) {
	var sb strings.Builder
	for _, f := range visibleFields(rv.Type()) {
		name, omitempty, skip := tagOf(f)
		if skip {
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		if omitempty && isEmptyValue(fv) {
			continue
		}
		lit, err := encodeScalarOrArray(fv)
		if err != nil {
			return "", &FieldError{Field: name, Err: err}
		}
		fmt.Fprintf(&sb, "%s = %s\n", name, lit)
	}
	return sb.String(), nil
}

func visibleFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tagOf(f reflect.StructField) (name string, omitempty bool, skip bool) {
	tag := f.Tag.Get("sane")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

func isNestedSection(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct || t.Kind() == reflect.Map
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	default:
		return false
	}
}

func encodeScalarOrArray(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return quoteString(v.String()), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case reflect.Ptr:
		if v.IsNil() {
			return "", fmt.Errorf("nil pointer scalar")
		}
		return encodeScalarOrArray(v.Elem())
	case reflect.Slice, reflect.Array:
		return encodeArray(v)
	default:
		return "", fmt.Errorf("unsupported scalar kind %s", v.Kind())
	}
}

func encodeArray(v reflect.Value) (string, error) {
	n := v.Len()
	elems := make([]string, n)
	for i := 0; i < n; i++ {
		ev := v.Index(i)
		if ev.Kind() == reflect.Struct || (ev.Kind() == reflect.Ptr && ev.Type().Elem().Kind() == reflect.Struct) {
			obj, err := encodeInlineObject(ev)
			if err != nil {
				return "", err
			}
			elems[i] = obj
			continue
		}
		lit, err := encodeScalarOrArray(ev)
		if err != nil {
			return "", err
		}
		elems[i] = lit
	}
	if n == 0 {
		return "[]", nil
	}
	return "[" + strings.Join(elems, ", ") + "]", nil
}

func encodeInlineObject(v reflect.Value) (string, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "{}", nil
		}
		v = v.Elem()
	}
	var parts []string
	for _, f := range visibleFields(v.Type()) {
		name, omitempty, skip := tagOf(f)
		if skip {
			continue
		}
		fv := v.FieldByIndex(f.Index)
		if omitempty && isEmptyValue(fv) {
			continue
		}
		lit, err := encodeScalarOrArray(fv)
		if err != nil {
			return "", &FieldError{Field: name, Err: err}
		}
		parts = append(parts, fmt.Sprintf("%s = %s", name, lit))
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// sortedKeys is used by decode-side callers walking a Value.Obj that need a
// stable order when no struct field order applies.
func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
