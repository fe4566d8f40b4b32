// Package index keeps the inverted word index over every phrase seen by the
// bot. Phrase texts and word texts share one intern table; each word maps to
// the set of (phrase, byte offset) positions where it starts.
//
// An Index is not safe for concurrent use. Callers serialize access
// themselves, holding it across an insert-then-generate sequence.
package index

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/intern"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/normalizer"
)

type Index struct {
	texts       *intern.Table
	postings    map[WordID]*postingList
	words       []WordID
	phrases     int
	occurrences int
}

func New() *Index {
	return &Index{
		texts:    intern.New(),
		postings: make(map[WordID]*postingList),
	}
}

// InsertPhrase adds phrase to the index. A single-word phrase only interns
// the word. Re-inserting a phrase leaves the index unchanged and reports
// NewlyIndexed as false.
func (x *Index) InsertPhrase(phrase normalizer.Phrase) InsertResult {
	text := phrase.String()
	if phrase.IsSingleWord() {
		return InsertResult{
			Words: []WordID{WordID(x.texts.Intern(text))},
		}
	}

	// Words never contain spaces, so a multi-word text is only ever in the
	// table because it was indexed as a phrase.
	_, seen := x.texts.Lookup(text)
	phraseID := x.texts.Intern(text)

	words := make([]WordID, 0, strings.Count(text, " ")+1)
	offset := 0
	for _, word := range strings.Split(text, " ") {
		wordID := WordID(x.texts.Intern(word))
		x.link(wordID, posting{phrase: phraseID, offset: offset})
		words = append(words, wordID)
		// the separating space follows every word
		offset += len(word) + 1
	}
	if !seen {
		x.phrases++
	}
	return InsertResult{
		Words:        words,
		Indexed:      true,
		NewlyIndexed: !seen,
	}
}

// CommonWords returns every word that occurs in at least one indexed phrase,
// in the order the words were first indexed.
func (x *Index) CommonWords() []WordID {
	out := make([]WordID, len(x.words))
	copy(out, x.words)
	return out
}

// CommonWord returns the id of word if it occurs in an indexed phrase.
func (x *Index) CommonWord(word string) (WordID, bool) {
	id, ok := x.texts.Lookup(word)
	if !ok {
		return 0, false
	}
	if _, indexed := x.postings[WordID(id)]; !indexed {
		return 0, false
	}
	return WordID(id), true
}

// WordsForIDs resolves ids to their texts, keeping order and repeats.
func (x *Index) WordsForIDs(ids []WordID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, x.texts.Resolve(intern.ID(id)))
	}
	return out
}

// PhrasesContaining returns every occurrence of word. word must be one of
// CommonWords or come from an Indexed InsertResult; any other id is a
// programming error and panics.
func (x *Index) PhrasesContaining(word WordID) []Occurrence {
	list, ok := x.postings[word]
	if !ok {
		panic(fmt.Sprintf("index: word id %d is not indexed", word))
	}
	out := make([]Occurrence, 0, len(list.entries))
	for _, p := range list.entries {
		out = append(out, Occurrence{
			Phrase: x.texts.Resolve(p.phrase),
			Offset: p.offset,
		})
	}
	return out
}

// Texts returns the number of interned texts, phrases and words together.
func (x *Index) Texts() int {
	return x.texts.Len()
}

// Size returns the byte length of all interned texts.
func (x *Index) Size() int64 {
	return x.texts.Size()
}

// PhraseCount returns the number of distinct multi-word phrases indexed.
func (x *Index) PhraseCount() int {
	return x.phrases
}

// OccurrenceCount returns the number of distinct word occurrences stored.
func (x *Index) OccurrenceCount() int {
	return x.occurrences
}

func (x *Index) link(word WordID, p posting) {
	list, exists := x.postings[word]
	if !exists {
		list = newPostingList()
		x.postings[word] = list
		x.words = append(x.words, word)
	}
	if list.add(p) {
		x.occurrences++
	}
}
