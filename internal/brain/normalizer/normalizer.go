// Package normalizer turns raw chat text into phrases. Text is split at
// sentence delimiters, punctuation becomes whitespace, whitespace runs are
// collapsed, and the result is lower-cased.
package normalizer

import "strings"

// asciiPunctuation lists every ASCII punctuation character. Sentence
// delimiters are handled before punctuation replacement.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Phrase is a normalized fragment of a message: lower-case, trimmed, words
// separated by exactly one space, no punctuation and no sentence delimiter.
// Phrases are only produced by Normalize.
type Phrase struct {
	text string
}

// String returns the normalized text.
func (p Phrase) String() string {
	return p.text
}

// IsSingleWord reports whether the phrase has no interior space.
func (p Phrase) IsSingleWord() bool {
	return !strings.Contains(p.text, " ")
}

// Normalize splits text at '.' and ';' and cleans every non-empty segment
// into a Phrase. Segments that clean down to nothing are dropped, so input
// made only of delimiters, punctuation or whitespace yields no phrases.
func Normalize(text string) []Phrase {
	segments := strings.FieldsFunc(text, isDelimiter)
	phrases := make([]Phrase, 0, len(segments))
	for _, segment := range segments {
		cleaned := strings.Map(punctuationToSpace, segment)
		cleaned = strings.ToLower(strings.Join(strings.Fields(cleaned), " "))
		if cleaned == "" {
			continue
		}
		phrases = append(phrases, Phrase{text: cleaned})
	}
	return phrases
}

func isDelimiter(r rune) bool {
	return r == '.' || r == ';'
}

func punctuationToSpace(r rune) rune {
	if r < 0x80 && strings.ContainsRune(asciiPunctuation, r) {
		return ' '
	}
	return r
}
