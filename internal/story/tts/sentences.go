package tts

import "unicode"

// Segment is a slice of an utterance's text with its rune offset.
type Segment struct {
	Offset int
	Text   string
}

// SplitSentences cuts text into sentence segments. A sentence ends after
// '.', '!' or '?' followed by whitespace, or at a line break. Segments that
// contain only whitespace are dropped; offsets always refer to the original
// text.
func SplitSentences(text string) []Segment {
	runes := []rune(text)
	var segments []Segment

	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		chunk := runes[start:end]
		if !isBlank(chunk) {
			segments = append(segments, Segment{Offset: start, Text: string(chunk)})
		}
		start = end
	}

	for i, r := range runes {
		switch {
		case r == '\n':
			flush(i + 1)
		case r == '.' || r == '!' || r == '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				flush(i + 1)
			}
		}
	}
	flush(len(runes))
	return segments
}

// limitSegments further splits segments longer than limit runes.
func limitSegments(segments []Segment, limit int) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		runes := []rune(s.Text)
		for i := 0; i < len(runes); i += limit {
			end := i + limit
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, Segment{Offset: s.Offset + i, Text: string(runes[i:end])})
		}
	}
	return out
}

func isBlank(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
