package index

import "github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/intern"

// WordID identifies a word. Only ids that are keys of the index (see
// Index.CommonWords) may be passed to Index.PhrasesContaining.
type WordID intern.ID

// Occurrence is a word starting at byte Offset inside the indexed phrase
// text Phrase.
type Occurrence struct {
	Phrase string
	Offset int
}

// InsertResult describes what InsertPhrase did with a phrase.
type InsertResult struct {
	// Words holds the id of every word in the phrase in order, repeats
	// included. A single-word phrase reports its one word.
	Words []WordID
	// Indexed is true when the phrase had more than one word, in which case
	// every id in Words is a key of the index.
	Indexed bool
	// NewlyIndexed is true when the phrase text had never been indexed before.
	NewlyIndexed bool
}

type posting struct {
	phrase intern.ID
	offset int
}

// postingList keeps the occurrences of one word as a set, remembering
// insertion order so lookups are reproducible.
type postingList struct {
	seen    map[posting]struct{}
	entries []posting
}

func newPostingList() *postingList {
	return &postingList{
		seen:    make(map[posting]struct{}),
		entries: make([]posting, 0, 2),
	}
}

func (l *postingList) add(p posting) bool {
	if _, exists := l.seen[p]; exists {
		return false
	}
	l.seen[p] = struct{}{}
	l.entries = append(l.entries, p)
	return true
}
