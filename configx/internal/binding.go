package internal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// BindToStruct fills the fields of target, a pointer to struct, from snapshot.
// A field with an `env` tag takes snapshot[tag] when present and non-empty,
// otherwise its `default` tag. Nested and embedded structs are walked.
func BindToStruct(snapshot map[string]string, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct")
	}
	return bindStructFields(snapshot, v.Elem())
}

func bindStructFields(snapshot map[string]string, sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < sv.NumField(); i++ {
		field := sv.Field(i)
		meta := st.Field(i)
		if !field.CanSet() {
			continue
		}

		key := meta.Tag.Get("env")
		if field.Kind() == reflect.Struct && key == "" {
			if err := bindStructFields(snapshot, field); err != nil {
				return fmt.Errorf("%s: %w", meta.Name, err)
			}
			continue
		}
		if key == "" {
			continue
		}

		value, ok := snapshot[key]
		if !ok || value == "" {
			value = meta.Tag.Get("default")
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("field %s (%s=%q): %w", meta.Name, key, value, err)
		}
	}
	return nil
}

// setFieldValue parses value into field. An empty value resets the field to its zero value.
func setFieldValue(field reflect.Value, value string) error {
	if value == "" {
		field.SetZero()
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts).Convert(field.Type()))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
