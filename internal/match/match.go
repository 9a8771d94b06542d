// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package match provides the pure string-similarity and geo-distance functions
// used by the deduplicator. Everything in this package is deterministic and
// free of I/O so the matching heuristics can be unit-tested in isolation.
package match

import (
	"math"
	"strings"
	"unicode"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// addressKeyLen is the number of normalized address characters included in the
// exact-match dedupe key.
const addressKeyLen = 20

// Normalize lowercases s and strips every non-alphanumeric rune. The result is
// the common currency for name and address comparisons, so that "Joe's Pizza"
// and "joes pizza" normalize identically.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupeKey computes the exact-match key for a draft: normalized name, an
// underscore, and the first 20 normalized characters of the address. Two
// drafts sharing this key are definite duplicates regardless of coordinates.
func DedupeKey(name, address string) string {
	addr := Normalize(address)
	// Truncate by runes, not bytes; normalized addresses may hold multibyte
	// characters (accented street names) that must not be cut mid-rune.
	if runes := []rune(addr); len(runes) > addressKeyLen {
		addr = string(runes[:addressKeyLen])
	}
	return Normalize(name) + "_" + addr
}

// Levenshtein computes the classic unit-cost edit distance between a and b
// (insert, delete, substitute; no transposition discount). Runs in O(len(a))
// space using the standard two-row dynamic program.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity scores two strings in [0, 1] as 1 - lev/maxlen over their
// normalized forms. Two empty strings score 0, not 1: an absent name or
// address carries no evidence of a match.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(na, nb))/float64(maxLen)
}

// Haversine returns the great-circle distance in kilometers between two
// lat/lng points, using Earth radius 6371 km.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
