package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Each helper only reports a value when the variable is set and parses; ok=false
// leaves the caller's current value in place.

func String(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func Int(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func Float(name string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func Bool(name string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

// Seconds reads an integer number of seconds.
func Seconds(name string) (time.Duration, bool) {
	n, ok := Int(name)
	if !ok || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func SetString(dst *string, name string) {
	if v, ok := String(name); ok {
		*dst = v
	}
}

func SetInt(dst *int, name string) {
	if v, ok := Int(name); ok {
		*dst = v
	}
}

func SetFloat(dst *float64, name string) {
	if v, ok := Float(name); ok {
		*dst = v
	}
}

func SetBool(dst *bool, name string) {
	if v, ok := Bool(name); ok {
		*dst = v
	}
}
