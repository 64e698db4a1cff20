package naming

import (
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var namePattern = regexp.MustCompile(`^\d{14}_\d{6}_.+$`)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerate_Format(t *testing.T) {
	at := time.Date(2026, 1, 18, 9, 30, 15, 999_000_000, time.UTC)
	g := NewGeneratorWith(fixedClock(at), func(int) int { return 4211 })

	assert.Equal(t, "20260118093015_004211_image.png", g.Generate("image.png"))
}

func TestGenerate_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	at := time.Date(2026, 1, 18, 2, 0, 0, 0, loc)
	g := NewGeneratorWith(fixedClock(at), func(int) int { return 0 })

	assert.Equal(t, "20260117170000_000000_a.png", g.Generate("a.png"))
}

func TestGenerate_SuffixBound(t *testing.T) {
	var gotN int

	g := NewGeneratorWith(fixedClock(time.Now()), func(n int) int {
		gotN = n
		return n - 1
	})

	name := g.Generate("x.png")
	assert.Equal(t, suffixSpace, gotN)
	assert.Contains(t, name, "_999999_x.png")
}

func TestGenerate_PathEscapeRoundTrip(t *testing.T) {
	g := NewGeneratorWith(fixedClock(time.Now()), func(int) int { return 7 })

	for _, original := range []string{"a b.png", "ü?#.png", "../etc/passwd", "100%.jpg"} {
		name := g.Generate(original)
		escaped := url.PathEscape(name)
		assert.NotContains(t, escaped, "/")
		assert.NotContains(t, escaped, "?")
		assert.NotContains(t, escaped, "#")

		back, err := url.PathUnescape(escaped)
		require.NoError(t, err)
		assert.Equal(t, name, back)
	}
}

// 10,000 names in one second over a 10^6 suffix space: the birthday bound
// puts expected collisions near 50. The format cannot do better; the server
// rejects overwrites for the rare duplicate.
func TestGenerate_SameSecondCollisionsBounded(t *testing.T) {
	at := time.Date(2026, 1, 18, 9, 30, 15, 0, time.UTC)
	g := NewGenerator()
	g.nowFunc = fixedClock(at)

	const calls = 10_000

	seen := make(map[string]struct{}, calls)
	dups := 0

	for range calls {
		name := g.Generate("shot.png")
		require.Regexp(t, namePattern, name)

		if _, ok := seen[name]; ok {
			dups++
		}

		seen[name] = struct{}{}
	}

	assert.Less(t, dups, 200)
}

func TestGenerate_PackageDefault(t *testing.T) {
	assert.Regexp(t, namePattern, Generate("a.png"))
}
