// Package catalog provides the static video library for e-PHIT Mental Health.
//
// The catalog is built once at startup — either from the embedded index that
// ships with the binary ([Default]) or from an external YAML index file
// ([LoadIndexFile]) — and is immutable afterwards. Display names are unique
// within a catalog; the chat pipeline relies on that uniqueness to link
// assistant text back to individual videos.
//
// All operations on a constructed [Catalog] are read-only and safe for
// concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Level is a video's difficulty tier.
type Level string

const (
	// LevelBeginner is the entry tier.
	LevelBeginner Level = "Beginner"

	// LevelMedium is the intermediate tier.
	LevelMedium Level = "Medium"

	// LevelAdvanced is the highest full-workout tier.
	LevelAdvanced Level = "Advanced"

	// LevelSkills marks short technique clips rather than full workouts.
	LevelSkills Level = "Skills"
)

// IsValid reports whether l is a recognised difficulty tier.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelMedium, LevelAdvanced, LevelSkills:
		return true
	}
	return false
}

// Video is a single entry in the library index.
type Video struct {
	// ID is a unique, stable identifier assigned at load time.
	ID string `yaml:"id,omitempty" json:"id"`

	// Name is the display name. Unique within the catalog.
	Name string `yaml:"name" json:"name"`

	// URL points at the hosted video. May be empty for entries whose
	// hosting location is still pending.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Level is the difficulty tier.
	Level Level `yaml:"level" json:"level"`

	// Minutes is the running time, or the short-clip sentinel.
	Minutes Duration `yaml:"minutes" json:"minutes"`

	// Category is the semicolon-separated category list ("Boxing; Cardio").
	Category string `yaml:"category" json:"category"`

	// Trainer names the presenter.
	Trainer string `yaml:"trainer,omitempty" json:"trainer,omitempty"`

	// Details is a comma-separated keyword summary.
	Details string `yaml:"details,omitempty" json:"details,omitempty"`

	// Description is the free-text blurb shown on cards.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Goal is the quiz decision-tree goal tag (q1: "Fitness", "Nutrition").
	Goal string `yaml:"goal,omitempty" json:"goal,omitempty"`

	// Subcategory is the quiz decision-tree subcategory tag (q1_1).
	Subcategory string `yaml:"subcategory,omitempty" json:"subcategory,omitempty"`

	// Time is the quiz duration-bucket tag (q3: "1 min!", "~5mins", ...).
	Time string `yaml:"time,omitempty" json:"time,omitempty"`
}

// PrimaryCategory returns the first entry of the semicolon-separated
// category list, trimmed.
func (v Video) PrimaryCategory() string {
	cat, _, _ := strings.Cut(v.Category, ";")
	return strings.TrimSpace(cat)
}

// youTubeIDPattern extracts the video ID from watch, shorts, and youtu.be
// style URLs.
var youTubeIDPattern = regexp.MustCompile(`(?:youtu\.be/|youtube\.com/(?:watch\?v=|shorts/))([^&?/\s]+)`)

// YouTubeID returns the YouTube video ID embedded in the URL, or "" when the
// URL does not match a known YouTube form.
func (v Video) YouTubeID() string {
	m := youTubeIDPattern.FindStringSubmatch(v.URL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Catalog is an immutable, indexed set of videos.
type Catalog struct {
	videos []Video
	byID   map[string]int
	byName map[string]int
}

// New builds a Catalog from the given videos. Entries without an ID are
// assigned a positional one ("video-0", "video-1", ...), matching the
// original index numbering. Returns an error when a name or ID is missing,
// duplicated, or a level is unrecognised — name uniqueness is required for
// unambiguous linking, so it is enforced here rather than trusted.
func New(videos []Video) (*Catalog, error) {
	c := &Catalog{
		videos: make([]Video, len(videos)),
		byID:   make(map[string]int, len(videos)),
		byName: make(map[string]int, len(videos)),
	}
	copy(c.videos, videos)

	var errs []error
	for i := range c.videos {
		v := &c.videos[i]
		if v.ID == "" {
			v.ID = fmt.Sprintf("video-%d", i)
		}
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("videos[%d]: name is required", i))
			continue
		}
		if !v.Level.IsValid() {
			errs = append(errs, fmt.Errorf("videos[%d] (%q): level %q is invalid; valid values: Beginner, Medium, Advanced, Skills", i, v.Name, v.Level))
		}
		if prev, ok := c.byID[v.ID]; ok {
			errs = append(errs, fmt.Errorf("videos[%d]: id %q duplicates videos[%d]", i, v.ID, prev))
		} else {
			c.byID[v.ID] = i
		}
		if prev, ok := c.byName[v.Name]; ok {
			errs = append(errs, fmt.Errorf("videos[%d]: name %q duplicates videos[%d]", i, v.Name, prev))
		} else {
			c.byName[v.Name] = i
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Len returns the number of videos in the catalog.
func (c *Catalog) Len() int {
	return len(c.videos)
}

// Videos returns all entries in index order. The returned slice is a copy.
func (c *Catalog) Videos() []Video {
	out := make([]Video, len(c.videos))
	copy(out, c.videos)
	return out
}

// ByID returns the video with the given ID.
func (c *Catalog) ByID(id string) (Video, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Video{}, false
	}
	return c.videos[i], true
}

// ByName returns the video with the given display name (exact match).
func (c *Catalog) ByName(name string) (Video, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Video{}, false
	}
	return c.videos[i], true
}

// Categories returns the distinct primary categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range c.videos {
		cat := v.PrimaryCategory()
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	slices.Sort(out)
	return out
}
