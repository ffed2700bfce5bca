// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package canonical normalizes user-supplied identifiers into a stable ASCII form.
//
// # Usage
//
// Usernames are canonicalized once at registration and again on every lookup,
// so "Älice", "alice", and " ALICE " all resolve to the same identity. The
// canonical form is what gets stored and what carries the unique constraint.
package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Username converts an arbitrary Unicode username into its canonical form.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Converts to lowercase.
// 4. Trims surrounding whitespace.
func Username(s string) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	// 2. Lowercase and trim
	result = strings.ToLower(result)
	result = strings.TrimSpace(result)

	return result
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
