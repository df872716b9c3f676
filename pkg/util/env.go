// Package util holds small helpers shared across packages.
package util

import (
	"os"
	"strconv"
	"strings"
)

// EnvStr returns the named environment variable, or def when it is unset
// or empty.
func EnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvList splits a comma-separated environment variable into a slice, or
// returns def when it is unset or empty.
func EnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return def
}

// EnvInt parses the named environment variable as an int, or returns def
// when it is unset or unparsable.
func EnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvFloat parses the named environment variable as a float64, or returns
// def when it is unset or unparsable.
func EnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
