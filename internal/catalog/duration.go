package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// shortSentinel is the index value marking a short clip with no fixed length.
const shortSentinel = "Short"

// Duration is a video's running time: either a positive whole number of
// minutes or the short-clip sentinel. The zero value is neither and fails
// validation.
type Duration struct {
	// Minutes is the running time. Zero when Short is set.
	Minutes int

	// Short marks a clip of under a minute with no published length.
	Short bool
}

// ShortClip returns the short-clip sentinel duration.
func ShortClip() Duration {
	return Duration{Short: true}
}

// MinutesOf returns a fixed-length duration of n minutes.
func MinutesOf(n int) Duration {
	return Duration{Minutes: n}
}

// String returns the index representation: the minute count, or "Short".
func (d Duration) String() string {
	if d.Short {
		return shortSentinel
	}
	return strconv.Itoa(d.Minutes)
}

// IsValid reports whether d is the short sentinel or a positive length.
func (d Duration) IsValid() bool {
	return d.Short || d.Minutes > 0
}

// UnmarshalYAML decodes either an integer minute count or the string
// "Short", mirroring the original index format.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int
	if err := node.Decode(&n); err == nil {
		*d = Duration{Minutes: n}
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("catalog: minutes must be a number or %q", shortSentinel)
	}
	if s != shortSentinel {
		return fmt.Errorf("catalog: minutes %q is not a number or %q", s, shortSentinel)
	}
	*d = Duration{Short: true}
	return nil
}

// MarshalJSON encodes the duration the way the original API shape did:
// a JSON number, or the string "Short".
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Short {
		return json.Marshal(shortSentinel)
	}
	return json.Marshal(d.Minutes)
}

// UnmarshalJSON is the inverse of [Duration.MarshalJSON].
func (d *Duration) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration{Minutes: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s != shortSentinel {
		return fmt.Errorf("catalog: minutes must be a number or %q", shortSentinel)
	}
	*d = Duration{Short: true}
	return nil
}
