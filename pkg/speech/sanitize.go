// Package speech prepares message text for speech synthesis: it strips
// markup the engine would read out loud and splits long text into
// utterance-sized chunks.
package speech

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]*`")
	linkRe       = regexp.MustCompile(`(?i)\[([^\]]+)\]\((?:https?://|mailto:)[^)]+\)`)
	decorRe      = regexp.MustCompile("[*_~`>#]")
	bracketRe    = regexp.MustCompile(`[()\[\]{}<>]`)
	hyphenRunRe  = regexp.MustCompile(`-{3,}`)
	punctGapRe   = regexp.MustCompile(`\s*([,.;:!?…])\s*`)
	wsRunRe      = regexp.MustCompile(`\s+`)
)

// Sanitize removes markdown and punctuation noise so the remaining text is
// speakable. The transform is idempotent.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	t := s

	// code blocks and inline code
	t = fencedCodeRe.ReplaceAllString(t, " ")
	t = inlineCodeRe.ReplaceAllString(t, " ")

	// links [label](url) -> "label"
	t = linkRe.ReplaceAllString(t, "$1")

	// markdown decoration and disturbing characters
	t = decorRe.ReplaceAllString(t, "")
	t = bracketRe.ReplaceAllString(t, " ")
	t = hyphenRunRe.ReplaceAllString(t, "—")
	t = punctGapRe.ReplaceAllString(t, "$1 ") // exactly one space after sentence punctuation
	t = wsRunRe.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}
