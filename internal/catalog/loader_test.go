package catalog_test

import (
	"strings"
	"testing"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

func TestDefault_EmbeddedIndexLoads(t *testing.T) {
	t.Parallel()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}

	// Spot-check entries the chat pipeline links against.
	for _, name := range []string{"5 min reset", "Boxing Combos 1", "Healthy Eating"} {
		if _, ok := c.ByName(name); !ok {
			t.Errorf("embedded catalog is missing %q", name)
		}
	}
}

func TestDefault_EveryEntryTagged(t *testing.T) {
	t.Parallel()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	for _, v := range c.Videos() {
		if v.Goal == "" {
			t.Errorf("video %q has no goal tag", v.Name)
		}
		if v.Subcategory == "" {
			t.Errorf("video %q has no subcategory tag", v.Name)
		}
	}
}

func TestLoadIndexFromReader_Valid(t *testing.T) {
	t.Parallel()
	yaml := `
library:
  name: test index
videos:
  - name: "Morning Flow"
    level: Beginner
    minutes: 10
    category: Yoga
  - name: "Quick Jab Drill"
    level: Skills
    minutes: Short
    category: Boxing
`
	c, err := catalog.LoadIndexFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadIndexFromReader() error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	v, _ := c.ByName("Quick Jab Drill")
	if !v.Minutes.Short {
		t.Error("minutes: Short should parse as a short clip")
	}
	v, _ = c.ByName("Morning Flow")
	if v.Minutes.Minutes != 10 {
		t.Errorf("Minutes = %d, want 10", v.Minutes.Minutes)
	}
}

func TestLoadIndexFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
videos:
  - name: "Morning Flow"
    level: Beginner
    minutes: 10
    category: Yoga
    presenter: Katie
`
	_, err := catalog.LoadIndexFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadIndexFromReader_BadDuration(t *testing.T) {
	t.Parallel()
	yaml := `
videos:
  - name: "Morning Flow"
    level: Beginner
    minutes: forever
    category: Yoga
`
	_, err := catalog.LoadIndexFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for bad duration, got nil")
	}
}

func TestDuration_String(t *testing.T) {
	t.Parallel()
	if got := catalog.MinutesOf(15).String(); got != "15" {
		t.Errorf("MinutesOf(15).String() = %q", got)
	}
	if got := catalog.ShortClip().String(); got != "Short" {
		t.Errorf("ShortClip().String() = %q", got)
	}
}
