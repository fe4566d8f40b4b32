package generator

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/index"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/normalizer"
)

// scriptedSource returns queued values, reducing each modulo n.
type scriptedSource struct {
	values []int
	calls  []int
}

func (s *scriptedSource) IntN(n int) int {
	s.calls = append(s.calls, n)
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v % n
}

func newIndex(t *testing.T, texts ...string) *index.Index {
	t.Helper()
	x := index.New()
	for _, text := range texts {
		for _, p := range normalizer.Normalize(text) {
			x.InsertPhrase(p)
		}
	}
	return x
}

func word(t *testing.T, x *index.Index, w string) index.WordID {
	t.Helper()
	id, ok := x.CommonWord(w)
	require.True(t, ok, "word %q is not indexed", w)
	return id
}

func TestSpliceKeepsPrefixOfFirstAndSuffixOfSecond(t *testing.T) {
	a := index.Occurrence{Phrase: "i have to go to the supermarket", Offset: 10}
	b := index.Occurrence{Phrase: "does anyone need to go first", Offset: 20}

	assert.Equal(t, "i have to go first", Splice(a, b))
	assert.Equal(t, "does anyone need to go to the supermarket", Splice(b, a))
}

func TestSpliceSwapsWhenResultWouldBeBareWord(t *testing.T) {
	a := index.Occurrence{Phrase: "go to the supermarket", Offset: 0}
	b := index.Occurrence{Phrase: "does anyone need to go", Offset: 20}

	assert.Equal(t, "does anyone need to go to the supermarket", Splice(a, b))
}

func TestSpliceWithItself(t *testing.T) {
	for _, occ := range []index.Occurrence{
		{Phrase: "go to the supermarket", Offset: 0},
		{Phrase: "go to the supermarket", Offset: 3},
		{Phrase: "does anyone need to go", Offset: 20},
	} {
		assert.Equal(t, occ.Phrase, Splice(occ, occ))
	}
}

func TestGenerateEmptyIndexReportsEmptyPool(t *testing.T) {
	g := New(index.New(), &scriptedSource{}, PolicyUniform)

	_, err := g.Generate(nil)
	assert.True(t, errors.Is(err, ErrEmptyPool))
}

func TestGenerateOnlySingleWordsReportsEmptyPool(t *testing.T) {
	g := New(newIndex(t, "hello", "you", "all"), &scriptedSource{}, PolicyWeighted)

	_, err := g.Generate(nil)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestGenerateSingleOccurrenceReturnsPhrase(t *testing.T) {
	x := newIndex(t, "go to the supermarket")
	g := New(x, rand.New(rand.NewPCG(1, 2)), PolicyUniform)

	got, err := g.Generate([]index.WordID{word(t, x, "go")})
	require.NoError(t, err)
	assert.Equal(t, "go to the supermarket", got)
}

func TestGenerateSplicesScriptedPicks(t *testing.T) {
	x := newIndex(t, "i have to go to the supermarket", "does anyone need to go first")
	goID := word(t, x, "go")
	occurrences := x.PhrasesContaining(goID)
	require.Len(t, occurrences, 2)

	src := &scriptedSource{values: []int{0, 0, 1}}
	g := New(x, src, PolicyUniform)

	got, err := g.Generate([]index.WordID{goID})
	require.NoError(t, err)
	assert.Equal(t, Splice(occurrences[0], occurrences[1]), got)
	assert.Equal(t, "i have to go first", got)
	assert.Equal(t, []int{1, 2, 2}, src.calls)
}

func TestGenerateFallsBackToCommonWords(t *testing.T) {
	x := newIndex(t, "hello there", "nice")
	src := &scriptedSource{}
	g := New(x, src, PolicyUniform)

	got, err := g.Generate(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
	assert.Equal(t, len(x.CommonWords()), src.calls[0])
}

func TestGenerateAlwaysSplicesAtSharedWord(t *testing.T) {
	x := newIndex(t,
		"i have to go to the supermarket",
		"does anyone need to go first",
		"we should go home now",
		"the supermarket is closed",
	)
	g := New(x, rand.New(rand.NewPCG(42, 7)), PolicyUniform)
	allowed := map[string]struct{}{}
	for _, w := range x.CommonWords() {
		occ := x.PhrasesContaining(w)
		for _, a := range occ {
			for _, b := range occ {
				allowed[Splice(a, b)] = struct{}{}
			}
		}
	}

	for i := 0; i < 200; i++ {
		got, err := g.Generate(nil)
		require.NoError(t, err)
		assert.Contains(t, allowed, got)
	}
}

func TestCandidatePoolPolicies(t *testing.T) {
	x := newIndex(t, "hello hello you all")
	res := x.InsertPhrase(normalizer.Normalize("hello hello you all")[0])
	hello, you, all := res.Words[0], res.Words[2], res.Words[3]

	uniform := New(x, &scriptedSource{}, PolicyUniform)
	assert.Equal(t, []index.WordID{hello, you, all}, uniform.candidates(res.Words))

	weighted := New(x, &scriptedSource{}, PolicyWeighted)
	assert.Equal(t, []index.WordID{hello, hello, you, all}, weighted.candidates(res.Words))

	assert.ElementsMatch(t, x.CommonWords(), uniform.candidates(nil))
	assert.ElementsMatch(t, x.CommonWords(), weighted.candidates(nil))
}

func TestWeightedPolicyFavoursRepeatedWords(t *testing.T) {
	x := newIndex(t, "hello hello you all")
	res := x.InsertPhrase(normalizer.Normalize("hello hello you all")[0])

	// index 1 of the weighted pool is the second "hello"; of the uniform pool
	// it is "you"
	src := &scriptedSource{values: []int{1}}
	got, err := New(x, src, PolicyWeighted).Generate(res.Words)
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls[0])
	assert.Contains(t, []string{"hello hello you all", "hello you all", "hello hello hello you all"}, got)

	src = &scriptedSource{values: []int{1}}
	got, err = New(x, src, PolicyUniform).Generate(res.Words)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls[0])
	assert.Equal(t, "hello hello you all", got)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyUniform, false},
		{"uniform", PolicyUniform, false},
		{"Weighted", PolicyWeighted, false},
		{"random", PolicyUniform, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) Policy {
	t.Helper()
	p, err := ParsePolicy(s)
	require.NoError(t, err)
	return p
}
