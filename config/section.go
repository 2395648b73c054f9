package config

import (
	"fmt"
	"strconv"
	"time"
)

// Section is a parsed key/value configuration object. The runtime never
// interprets it; it is handed to a unit's initialization hook as-is.
type Section map[string]interface{}

// Has reports whether key is present.
func (s Section) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the value for key as a string, or def when absent.
func (s Section) String(key, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Int returns the value for key as an int, or def when absent or not numeric.
func (s Section) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Float returns the value for key as a float64, or def when absent or not numeric.
func (s Section) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the value for key as a bool, or def when absent or not boolean.
func (s Section) Bool(key string, def bool) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Duration returns the value for key as a time.Duration. Strings are parsed with
// time.ParseDuration and integers are taken as milliseconds.
func (s Section) Duration(key string, def time.Duration) time.Duration {
	switch v := s[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	}
	return def
}

// Sub returns the nested section stored under key, or an empty Section.
func (s Section) Sub(key string) Section {
	switch v := s[key].(type) {
	case Section:
		return v
	case map[string]interface{}:
		return Section(v)
	}
	return Section{}
}
