package gateway

import (
	"fmt"
	"strings"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// SystemPrompt renders the coach persona plus the full video library as a
// system message. The model is instructed to mention videos by their exact
// catalog name so the response linker can match them verbatim.
func SystemPrompt(c *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString(`You are ePhit Coach, a friendly and knowledgeable personal health coach. You help people build sustainable habits across movement, nutrition and mindset.

Guidelines:
- Keep answers short, warm and practical.
- Never give medical advice; suggest consulting a professional for health concerns.
- When a video from the library below fits the user's question, recommend it by its exact name.
- Recommend at most a few videos per answer; pick the best fit, not a list.

Video library:
`)

	for _, cat := range c.Categories() {
		fmt.Fprintf(&b, "\n%s:\n", cat)
		for _, v := range c.Videos() {
			if v.PrimaryCategory() != cat {
				continue
			}
			length := "short clip"
			if !v.Minutes.Short {
				length = fmt.Sprintf("%d min", v.Minutes.Minutes)
			}
			fmt.Fprintf(&b, "- %s (%s, %s)\n", v.Name, v.Level, length)
		}
	}

	return b.String()
}
