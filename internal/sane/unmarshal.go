package sane

import (
	"fmt"
	"reflect"
)

// Unmarshal decodes SANE-formatted data into v, which must be a non-nil
// pointer to a struct. Field mapping mirrors Marshal: scalar and array
// fields are read from the top-level object, nested-struct fields are read
// from the correspondingly named section (or, if present, from a top-level
// inline object under that key).
func Unmarshal(data []byte, v any) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	return DecodeValue(doc.Root, v)
}

// DecodeValue populates v from an already-parsed Value tree, useful for
// tagged-union fields that were pulled out of a parent object generically
// before being dispatched to a concrete type.
func DecodeValue(val Value, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("sane: Unmarshal requires a non-nil pointer, got %T", v)
	}
	return decodeStruct(val, rv.Elem())
}

func decodeStruct(val Value, rv reflect.Value) error {
	if val.Kind != KindObject {
		return fmt.Errorf("%w: expected object, got %v", ErrTypeMismatch, val.Kind)
	}
	for _, f := range visibleFields(rv.Type()) {
		name, _, skip := tagOf(f)
		if skip {
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		raw, present := val.Get(name)
		if !present {
			continue
		}
		if err := decodeField(raw, fv); err != nil {
			return &FieldError{Field: name, Err: err}
		}
	}
	return nil
}

func decodeField(raw Value, fv reflect.Value) error {
	switch fv.Kind() {
	case reflect.String:
		if raw.Kind != KindString {
			return fmt.Errorf("%w: expected string", ErrTypeMismatch)
		}
		fv.SetString(raw.Str)
		return nil
	case reflect.Bool:
		if raw.Kind != KindBool {
			return fmt.Errorf("%w: expected bool", ErrTypeMismatch)
		}
		fv.SetBool(raw.Bool)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := asInt(raw)
		if err != nil {
			return err
		}
		fv.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := asInt(raw)
		if err != nil {
			return err
		}
		fv.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		switch raw.Kind {
		case KindFloat:
			fv.SetFloat(raw.Flt)
		case KindInt:
			fv.SetFloat(float64(raw.Int))
		default:
			return fmt.Errorf("%w: expected number", ErrTypeMismatch)
		}
		return nil
	case reflect.Ptr:
		elem := reflect.New(fv.Type().Elem())
		if fv.Type().Elem().Kind() == reflect.Struct {
			if err := decodeStruct(raw, elem.Elem()); err != nil {
				return err
			}
		} else if err := decodeField(raw, elem.Elem()); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	case reflect.Struct:
		return decodeStruct(raw, fv)
	case reflect.Slice:
		if raw.Kind != KindArray {
			return fmt.Errorf("%w: expected array", ErrTypeMismatch)
		}
		out := reflect.MakeSlice(fv.Type(), len(raw.Arr), len(raw.Arr))
		for i, item := range raw.Arr {
			if err := decodeField(item, out.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		fv.Set(out)
		return nil
	case reflect.Map:
		if raw.Kind != KindObject {
			return fmt.Errorf("%w: expected object for map", ErrTypeMismatch)
		}
		if fv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("sane: unsupported map key kind %s", fv.Type().Key())
		}
		m := reflect.MakeMapWithSize(fv.Type(), len(raw.Keys))
		for _, k := range raw.Keys {
			item := raw.Obj[k]
			ev := reflect.New(fv.Type().Elem()).Elem()
			if err := decodeField(item, ev); err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			m.SetMapIndex(reflect.ValueOf(k).Convert(fv.Type().Key()), ev)
		}
		fv.Set(m)
		return nil
	default:
		return fmt.Errorf("sane: unsupported field kind %s", fv.Kind())
	}
}

func asInt(raw Value) (int64, error) {
	switch raw.Kind {
	case KindInt:
		return raw.Int, nil
	case KindFloat:
		return int64(raw.Flt), nil
	default:
		return 0, fmt.Errorf("%w: expected integer", ErrTypeMismatch)
	}
}
