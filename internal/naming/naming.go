// Package naming generates remote object names for uploaded images. A name
// is a UTC second-precision timestamp, a six-digit random suffix and the
// original file name, joined by underscores:
//
//	20260118093015_004211_image.png
//
// Names sort chronologically on the server and are unique with high
// probability among uploads landing in the same second.
package naming

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// timestampLayout renders 14 digits: YYYYMMDDhhmmss.
const timestampLayout = "20060102150405"

// suffixSpace is the exclusive upper bound of the random suffix.
const suffixSpace = 1_000_000

// Generator produces remote object names. The zero value is not usable;
// construct with NewGenerator.
type Generator struct {
	nowFunc  func() time.Time
	randFunc func(n int) int
}

// NewGenerator returns a Generator backed by the wall clock and math/rand/v2.
func NewGenerator() *Generator {
	return &Generator{
		nowFunc:  time.Now,
		randFunc: rand.IntN, //nolint:gosec // collision avoidance, not secrecy
	}
}

// NewGeneratorWith returns a Generator with an explicit clock and random
// source. Both are required; tests use this to pin the output.
func NewGeneratorWith(now func() time.Time, randIntN func(n int) int) *Generator {
	return &Generator{nowFunc: now, randFunc: randIntN}
}

// Generate returns the remote object name for originalName. The result is
// safe as a URL path segment once escaped with url.PathEscape.
func (g *Generator) Generate(originalName string) string {
	ts := g.nowFunc().UTC().Format(timestampLayout)
	suffix := g.randFunc(suffixSpace)

	return fmt.Sprintf("%s_%06d_%s", ts, suffix, originalName)
}

var defaultGenerator = NewGenerator()

// Generate uses the package default Generator.
func Generate(originalName string) string {
	return defaultGenerator.Generate(originalName)
}
