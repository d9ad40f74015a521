package lyrics

import (
	"fmt"
	"strings"

	"github.com/songsmith/songsmith-api/internal/song"
)

const systemPrompt = `You are a lyricist. Write song lyrics section by section.

Rules:
- Write 4 lines per section unless the section is very short.
- Keep lines singable: 6-10 syllables each, natural stresses.
- The chorus must be the emotional payoff and should repeat a hook phrase.
- Plain words over clever ones. No stage directions, no chord names, no annotations.`

// buildUserPrompt renders the brief and the section layout.
func buildUserPrompt(req song.CompositionRequest, sections []song.Section) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write lyrics for a song titled %q.\n", req.Title)
	fmt.Fprintf(&b, "Style: %s\n", orUnspecified(req.Style))
	if req.Description != "" {
		fmt.Fprintf(&b, "It is about: %s\n", req.Description)
	}
	if len(req.Inspirations) > 0 {
		fmt.Fprintf(&b, "Inspirations: %s\n", strings.Join(req.Inspirations, ", "))
	}

	b.WriteString("\nSections:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s (%d bars)\n", s.Kind, s.Bars)
	}

	return b.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}
