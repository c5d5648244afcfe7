// Package utils provides small, generic helpers shared by the HTTP layer.
// They carry no domain logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, ignoring surrounding whitespace. Empty or
// unparsable input yields def.
//
//	utils.AtoiDefault("42", 0)  // 42
//	utils.AtoiDefault(" 7 ", 0) // 7
//	utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// TotalPages returns how many pages of size hold total items. A non-positive
// size counts as one item per page.
func TotalPages(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	if size <= 0 {
		size = 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
