package catalog

import (
	"math/rand"
)

// Answers is a partial record of quiz answers. Empty fields impose no
// constraint; present fields must match a video's tags exactly.
type Answers struct {
	// Goal filters on the decision-tree goal tag ("Fitness", "Nutrition").
	Goal string `json:"goal,omitempty"`

	// Subcategory filters on the subcategory tag ("Boxing Moves", "Yoga", ...).
	Subcategory string `json:"subcategory,omitempty"`

	// Time filters on the duration bucket ("1 min!", "~5mins", "5-10mins", "~15mins").
	Time string `json:"time,omitempty"`

	// Level filters on the difficulty tier.
	Level string `json:"level,omitempty"`
}

// matches reports whether v satisfies every present field of a.
func (a Answers) matches(v Video) bool {
	if a.Goal != "" && v.Goal != a.Goal {
		return false
	}
	if a.Subcategory != "" && v.Subcategory != a.Subcategory {
		return false
	}
	if a.Time != "" && v.Time != a.Time {
		return false
	}
	if a.Level != "" && string(v.Level) != a.Level {
		return false
	}
	return true
}

// Filter returns every video matching all present fields of answers, in
// index order. An empty result is valid, not an error.
func (c *Catalog) Filter(answers Answers) []Video {
	var out []Video
	for _, v := range c.videos {
		if answers.matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// Recommend returns the filtered set verbatim when it has at most count
// entries; otherwise a uniform random sample of exactly count distinct
// entries with no guaranteed ordering. A negative count is treated as zero.
// rng may be nil, in which case the shared package source is used.
func (c *Catalog) Recommend(answers Answers, count int, rng *rand.Rand) []Video {
	if count < 0 {
		count = 0
	}
	filtered := c.Filter(answers)
	if len(filtered) <= count {
		return filtered
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})
	return filtered[:count]
}

// Options lists the distinct tag values per quiz axis that are still
// reachable under a partial set of answers. Used to hide quiz choices that
// would yield zero results.
type Options struct {
	Goals         []string `json:"goals"`
	Subcategories []string `json:"subcategories"`
	Times         []string `json:"times"`
	Levels        []string `json:"levels"`
}

// AvailableOptions computes [Options] over the videos matching answers.
// Values appear in first-seen index order; empty tag values are skipped.
func (c *Catalog) AvailableOptions(answers Answers) Options {
	var opts Options
	goals := make(map[string]bool)
	subs := make(map[string]bool)
	times := make(map[string]bool)
	levels := make(map[string]bool)

	for _, v := range c.Filter(answers) {
		if v.Goal != "" && !goals[v.Goal] {
			goals[v.Goal] = true
			opts.Goals = append(opts.Goals, v.Goal)
		}
		if v.Subcategory != "" && !subs[v.Subcategory] {
			subs[v.Subcategory] = true
			opts.Subcategories = append(opts.Subcategories, v.Subcategory)
		}
		if v.Time != "" && !times[v.Time] {
			times[v.Time] = true
			opts.Times = append(opts.Times, v.Time)
		}
		if lvl := string(v.Level); !levels[lvl] {
			levels[lvl] = true
			opts.Levels = append(opts.Levels, lvl)
		}
	}
	return opts
}
