package speech

import (
	"regexp"
	"strings"
)

// DefaultMaxChunkLen is the utterance length most engines still handle
// without stalling or clipping.
const DefaultMaxChunkLen = 220

// hard cuts below this position would land mid-word too aggressively
const minWrapPos = 40

var (
	sentenceEndRe = regexp.MustCompile(`([.!?…]+)\s+`)
	commaGapRe    = regexp.MustCompile(`,\s+`)
	lonePunctRe   = regexp.MustCompile(`^[,.;:!?…-]$`)
)

// Chunk sanitizes src and splits it into speakable pieces of at most maxLen
// runes: sentences first, oversized sentences at commas, and as a last
// resort at the last space before the limit. Chunks that are nothing but a
// punctuation mark are dropped.
func Chunk(src string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLen
	}
	clean := Sanitize(src)
	if clean == "" {
		return nil
	}

	out := []string{}
	pushIfUseful := func(s string) {
		t := strings.TrimSpace(s)
		if t == "" || lonePunctRe.MatchString(t) {
			return
		}
		out = append(out, t)
	}

	for _, sentence := range splitSentences(clean) {
		if runeLen(sentence) <= maxLen {
			pushIfUseful(sentence)
			continue
		}

		// soft-split at commas, accumulating up to maxLen
		buf := ""
		for _, piece := range commaGapRe.Split(sentence, -1) {
			candidate := piece
			if buf != "" {
				candidate = buf + ", " + piece
			}
			if runeLen(candidate) <= maxLen {
				buf = candidate
				continue
			}
			if buf != "" {
				pushIfUseful(buf)
			}
			// hard-wrap at spaces
			rest := piece
			for runeLen(rest) > maxLen {
				head, tail := hardWrap(rest, maxLen)
				pushIfUseful(head)
				rest = tail
			}
			buf = rest
		}
		if buf != "" {
			pushIfUseful(buf)
		}
	}

	return out
}

// splitSentences cuts at sentence-ending punctuation followed by space,
// keeping the punctuation attached to the preceding sentence.
func splitSentences(clean string) []string {
	var sentences []string
	prev := 0
	for _, m := range sentenceEndRe.FindAllStringSubmatchIndex(clean, -1) {
		head := clean[prev:m[0]]
		punct := clean[m[2]:m[3]]
		switch {
		case head != "":
			sentences = append(sentences, head+punct)
		case len(sentences) > 0:
			sentences[len(sentences)-1] += punct
		default:
			sentences = append(sentences, punct)
		}
		prev = m[1]
	}
	if tail := clean[prev:]; tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// hardWrap cuts s at the last space at or before maxLen, or at maxLen
// exactly when no space sits beyond minWrapPos.
func hardWrap(s string, maxLen int) (head, tail string) {
	runes := []rune(s)
	idx := maxLen
	if cut := lastSpaceBefore(runes, maxLen); cut > minWrapPos {
		idx = cut
	}
	return string(runes[:idx]), strings.TrimSpace(string(runes[idx:]))
}

func lastSpaceBefore(runes []rune, pos int) int {
	if pos >= len(runes) {
		pos = len(runes) - 1
	}
	for i := pos; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func runeLen(s string) int {
	return len([]rune(s))
}
