package chat

import (
	"regexp"
	"slices"
	"strings"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// DefaultMaxLinks caps how many linked videos are rendered under a message.
const DefaultMaxLinks = 4

// parenthetical matches a parenthesised span such as a duration annotation
// ("(5min)"), which is never part of a video's display name.
var parenthetical = regexp.MustCompile(`\(.*?\)`)

// normalizeReplacer strips markdown emphasis and bracket characters.
var normalizeReplacer = strings.NewReplacer("**", "", "*", "", "[", "", "]", "")

// Linker finds catalog entries referenced by assistant text. It scans the
// catalog's display names longest-first so that when one name contains
// another ("Boxing Combos 1" vs a hypothetical "Boxing"), the more specific
// name is tested, and therefore found, first. This is a curated-content
// heuristic, not a parser; the catalog avoids names that would collide
// under it.
//
// A Linker is immutable after construction and safe for concurrent use.
type Linker struct {
	// byLength holds the catalog entries sorted by name length, descending.
	byLength []catalog.Video
}

// NewLinker builds a Linker over the given catalog.
func NewLinker(c *catalog.Catalog) *Linker {
	videos := c.Videos()
	slices.SortStableFunc(videos, func(a, b catalog.Video) int {
		return len(b.Name) - len(a.Name)
	})
	return &Linker{byLength: videos}
}

// Link returns the catalog entries whose names occur in text, deduplicated
// by ID, in detection (longest-match) order, truncated to maxResults.
// maxResults <= 0 means [DefaultMaxLinks]. No match yields an empty list.
func (l *Linker) Link(text string, maxResults int) []catalog.Video {
	if maxResults <= 0 {
		maxResults = DefaultMaxLinks
	}

	clean := normalize(text)

	var out []catalog.Video
	seen := make(map[string]bool)
	for _, v := range l.byLength {
		if len(out) >= maxResults {
			break
		}
		if seen[v.ID] {
			continue
		}
		if strings.Contains(clean, strings.ToLower(v.Name)) {
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	return out
}

// normalize lowercases text and strips the markdown decoration the coach
// wraps video names in: emphasis markers, brackets, and parenthesised
// annotations.
func normalize(text string) string {
	clean := strings.ToLower(text)
	clean = normalizeReplacer.Replace(clean)
	clean = parenthetical.ReplaceAllString(clean, "")
	return clean
}
