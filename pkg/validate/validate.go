// Package validate provides struct-tag validation for request payloads.
//
// Rules are comma-separated in the `validate` tag:
//
//	required        field must not be zero/empty
//	nullable        if empty, skip all remaining rules for this field
//	email           valid email address
//	url             valid http(s) URL
//	objectid        24 hex characters
//	numeric         string parses as a number
//	min=N           string: min char length | number: min value
//	max=N           string: max char length | number: max value
//	gte=N / lte=N   numeric bounds
//	in=a|b|c        value must be one of the listed items
//	dive            validate a nested struct, or every struct in a slice
//
// Nested errors are keyed by path, e.g. "orderItems.0.quantity" or
// "shippingAddress.city".
//
//	type Input struct {
//	    Email string  `json:"email" validate:"required,email"`
//	    Sort  string  `json:"sort"  validate:"nullable,in=price_asc|price_desc"`
//	    Items []Item  `json:"items" validate:"required,dive"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of field path → error message; empty map means no errors.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		walk(rv, "", errs)
	}
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" || !field.IsExported() {
			continue
		}

		value := rv.Field(i)
		name := prefix + jsonFieldName(field)
		rules := strings.Split(tag, ",")

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			rule = strings.TrimSpace(rule)
			if rule == "nullable" || rule == "dive" {
				continue
			}
			if msg := apply(rule, jsonFieldName(field), value); msg != "" {
				errs[name] = msg
				failed = true
				break
			}
		}

		if !failed && hasRule(rules, "dive") {
			dive(value, name, errs)
		}
	}
}

func dive(v reflect.Value, name string, errs map[string]string) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			dive(v.Elem(), name, errs)
		}
	case reflect.Struct:
		walk(v, name+".", errs)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			dive(v.Index(i), name+"."+strconv.Itoa(i), errs)
		}
	}
}

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	raw := ""
	if v.Kind() == reflect.String {
		raw = strings.TrimSpace(v.String())
	} else if isNumericKind(v) {
		raw = fmt.Sprintf("%v", v.Interface())
	}

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "objectid":
		if !objectIDRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid id.", field)
		}
	case "numeric":
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Sprintf("The %s field must be a number.", field)
		}
	case "min":
		n := parseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(length(v)) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := parseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		} else if float64(length(v)) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lte":
		if toFloat(v) > parseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "in":
		for _, allowed := range strings.Split(param, "|") {
			if raw == strings.TrimSpace(allowed) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return ""
}

var (
	emailRE    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	objectIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a value, not absence
	case reflect.Struct:
		return v.IsZero()
	}
	if isNumericKind(v) {
		return toFloat(v) == 0
	}
	return false
}

func length(v reflect.Value) int {
	switch v.Kind() {
	case reflect.String:
		return len([]rune(strings.TrimSpace(v.String())))
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len()
	}
	return 0
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Ptr:
		if !v.IsNil() {
			return toFloat(v.Elem())
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name[:1]) + f.Name[1:]
	}
	return name
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
