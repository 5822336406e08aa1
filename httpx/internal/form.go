// Package internal implements form decoding and response recording for httpx.
package internal

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// DecodeForm copies values into the string fields of target that carry a
// `form` tag. Values are trimmed; a missing key leaves the field untouched.
func DecodeForm(values url.Values, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct")
	}
	sv := v.Elem()
	st := sv.Type()
	for i := 0; i < sv.NumField(); i++ {
		name := st.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		field := sv.Field(i)
		if !field.CanSet() || field.Kind() != reflect.String {
			return fmt.Errorf("field %s: form binding supports string kinds only", st.Field(i).Name)
		}
		if _, ok := values[name]; !ok {
			continue
		}
		field.SetString(strings.TrimSpace(values.Get(name)))
	}
	return nil
}
