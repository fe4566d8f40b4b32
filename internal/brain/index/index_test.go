package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/normalizer"
)

func phrase(t testing.TB, text string) normalizer.Phrase {
	t.Helper()
	phrases := normalizer.Normalize(text)
	require.Len(t, phrases, 1, "text %q must normalize to one phrase", text)
	return phrases[0]
}

func insertAll(t testing.TB, x *Index, texts ...string) {
	t.Helper()
	for _, text := range texts {
		x.InsertPhrase(phrase(t, text))
	}
}

func commonWordTexts(x *Index) []string {
	return x.WordsForIDs(x.CommonWords())
}

func mustWord(t *testing.T, x *Index, word string) WordID {
	t.Helper()
	id, ok := x.CommonWord(word)
	require.True(t, ok, "word %q is not indexed", word)
	return id
}

func TestCommonWordsEmptyIndex(t *testing.T) {
	assert.Empty(t, New().CommonWords())
}

func TestSingleWordPhrasesAreNotIndexed(t *testing.T) {
	x := New()
	for _, w := range []string{"hello", "you", "all"} {
		res := x.InsertPhrase(phrase(t, w))
		assert.False(t, res.Indexed)
		assert.False(t, res.NewlyIndexed)
		require.Len(t, res.Words, 1)
		assert.Equal(t, []string{w}, x.WordsForIDs(res.Words))
	}

	assert.Empty(t, x.CommonWords())
	_, ok := x.CommonWord("hello")
	assert.False(t, ok)
	assert.Equal(t, 3, x.Texts())
	assert.Zero(t, x.PhraseCount())
}

func TestCommonWordsAreDeduplicated(t *testing.T) {
	x := New()
	insertAll(t, x, "hello hello you all", "nice", "how are you all doing")

	assert.ElementsMatch(t,
		[]string{"hello", "you", "all", "how", "are", "doing"},
		commonWordTexts(x),
	)
	assert.Equal(t, 2, x.PhraseCount())
}

func TestInsertReportsWordsInOrderWithRepeats(t *testing.T) {
	x := New()
	res := x.InsertPhrase(phrase(t, "hello hello you all"))

	assert.True(t, res.Indexed)
	assert.True(t, res.NewlyIndexed)
	assert.Equal(t, []string{"hello", "hello", "you", "all"}, x.WordsForIDs(res.Words))
	assert.Equal(t, res.Words[0], res.Words[1])
}

func TestInsertIsIdempotent(t *testing.T) {
	x := New()
	first := x.InsertPhrase(phrase(t, "hello there friend"))
	before := x.PhrasesContaining(mustWord(t, x, "there"))
	occurrences := x.OccurrenceCount()

	second := x.InsertPhrase(phrase(t, "hello there friend"))

	assert.True(t, first.NewlyIndexed)
	assert.False(t, second.NewlyIndexed)
	assert.True(t, second.Indexed)
	assert.Equal(t, first.Words, second.Words)
	assert.Equal(t, before, x.PhrasesContaining(mustWord(t, x, "there")))
	assert.Equal(t, occurrences, x.OccurrenceCount())
	assert.Equal(t, 1, x.PhraseCount())
}

func TestSingleWordSharesIDWithWordInsidePhrase(t *testing.T) {
	x := New()
	single := x.InsertPhrase(phrase(t, "friend"))
	insertAll(t, x, "hello there friend")

	assert.Equal(t, single.Words[0], mustWord(t, x, "friend"))
}

func TestPhrasesContainingReturnsOffsets(t *testing.T) {
	x := New()
	insertAll(t, x,
		"hello there friend",
		"hey friend what are you up to",
		"i have got lots of friends",
		"good evening",
	)

	got := x.PhrasesContaining(mustWord(t, x, "friend"))
	assert.ElementsMatch(t, []Occurrence{
		{Phrase: "hello there friend", Offset: 12},
		{Phrase: "hey friend what are you up to", Offset: 4},
	}, got)
}

func TestPhrasesContainingDoesNotDuplicate(t *testing.T) {
	x := New()
	insertAll(t, x, "hello there friend", "hello there friend", "hello there friend")

	got := x.PhrasesContaining(mustWord(t, x, "friend"))
	assert.Equal(t, []Occurrence{{Phrase: "hello there friend", Offset: 12}}, got)
}

func TestRepeatedWordKeepsEachOffset(t *testing.T) {
	x := New()
	insertAll(t, x, "go go go")

	got := x.PhrasesContaining(mustWord(t, x, "go"))
	assert.Equal(t, []Occurrence{
		{Phrase: "go go go", Offset: 0},
		{Phrase: "go go go", Offset: 3},
		{Phrase: "go go go", Offset: 6},
	}, got)
}

func TestOffsetsPointAtWordStart(t *testing.T) {
	x := New()
	insertAll(t, x, "ção é ótimo demais")

	for _, word := range []string{"ção", "é", "ótimo", "demais"} {
		for _, occ := range x.PhrasesContaining(mustWord(t, x, word)) {
			assert.Equal(t, word, occ.Phrase[occ.Offset:occ.Offset+len(word)])
		}
	}
}

func TestPhrasesContainingUnknownWordPanics(t *testing.T) {
	x := New()
	insertAll(t, x, "hello there")
	single := x.InsertPhrase(phrase(t, "hi"))

	assert.Panics(t, func() { x.PhrasesContaining(single.Words[0]) })
	assert.Panics(t, func() { x.PhrasesContaining(WordID(999)) })
}

func TestWordsForIDsKeepsOrderAndRepeats(t *testing.T) {
	x := New()
	insertAll(t, x, "a b c")
	a, b := mustWord(t, x, "a"), mustWord(t, x, "b")

	assert.Equal(t, []string{"b", "a", "b"}, x.WordsForIDs([]WordID{b, a, b}))
}
