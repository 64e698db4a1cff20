package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Server settings
	"api_origin": true, "username": true, "request_timeout": true, "bandwidth_limit": true,
	// Credential settings
	"credential_ttl": true, "credential_file": true,
	// Ingest settings
	"max_attempts": true, "editor_poll_interval": true, "history_db": true,
	// Bridge settings
	"listen_addr": true, "bridge_origins": true,
	// Logging settings
	"log_level": true,
}

// knownKeysList is the sorted slice form of knownKeys for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		// A table or array of tables reports each nested key; report the
		// top-level name once.
		top := strings.SplitN(key.String(), ".", 2)[0]
		if seen[top] {
			continue
		}

		seen[top] = true
		errs = append(errs, unknownKeyError(top))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes an unknown key, suggesting the closest known one.
func unknownKeyError(key string) error {
	if suggestion := closestMatch(key, knownKeysList); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", key, suggestion)
	}

	return fmt.Errorf("unknown config key %q", key)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
