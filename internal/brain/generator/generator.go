// Package generator builds new sentences by splicing two indexed phrases
// together at a word they share.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/index"
)

// ErrEmptyPool is returned when there is no candidate word to pivot on,
// e.g. before any multi-word phrase has been indexed.
var ErrEmptyPool = errors.New("no candidate words to generate from")

// Policy decides how repeated word ids from a message weigh in pivot
// selection.
type Policy int

const (
	// PolicyUniform deduplicates the message's word ids, so every distinct
	// word is equally likely.
	PolicyUniform Policy = iota
	// PolicyWeighted keeps repeats, so a word said twice is twice as likely.
	PolicyWeighted
)

func (p Policy) String() string {
	switch p {
	case PolicyUniform:
		return "uniform"
	case PolicyWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// ParsePolicy maps "uniform" or "weighted" to a Policy. The empty string is
// uniform.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "uniform":
		return PolicyUniform, nil
	case "weighted":
		return PolicyWeighted, nil
	default:
		return PolicyUniform, fmt.Errorf("unknown pool policy %q", s)
	}
}

// Source supplies uniform random integers in [0, n). *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Generator reads an index to produce spliced sentences. It shares the
// index's lack of internal locking.
type Generator struct {
	index  *index.Index
	rng    Source
	policy Policy
}

func New(idx *index.Index, rng Source, policy Policy) *Generator {
	return &Generator{
		index:  idx,
		rng:    rng,
		policy: policy,
	}
}

// Policy returns the candidate pool policy in use.
func (g *Generator) Policy() Policy {
	return g.policy
}

// Generate picks a pivot word from observed (or from every common word when
// observed is empty), picks two of its occurrences with replacement, and
// splices them. observed must only hold ids from Indexed insert results.
func (g *Generator) Generate(observed []index.WordID) (string, error) {
	pool := g.candidates(observed)
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	word := pool[g.rng.IntN(len(pool))]
	occurrences := g.index.PhrasesContaining(word)
	first := occurrences[g.rng.IntN(len(occurrences))]
	second := occurrences[g.rng.IntN(len(occurrences))]
	return Splice(first, second), nil
}

func (g *Generator) candidates(observed []index.WordID) []index.WordID {
	if len(observed) == 0 {
		return g.index.CommonWords()
	}
	if g.policy == PolicyWeighted {
		return observed
	}
	seen := make(map[index.WordID]struct{}, len(observed))
	pool := make([]index.WordID, 0, len(observed))
	for _, id := range observed {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pool = append(pool, id)
	}
	return pool
}

// Splice joins the part of first before its shared word with the shared word
// and everything after it from second. When the shared word opens first and
// closes second, the two are swapped so the result is more than the bare
// word.
func Splice(first, second index.Occurrence) string {
	if first.Offset == 0 && !strings.Contains(second.Phrase[second.Offset:], " ") {
		first, second = second, first
	}
	return first.Phrase[:first.Offset] + second.Phrase[second.Offset:]
}
