// Package brain owns the phrase index and the reply generator and is the one
// place that serializes access to them. Every message is normalized,
// inserted, and optionally answered while a single lock is held.
package brain

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/generator"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/index"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/normalizer"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
)

// Outcome is the result of processing one message.
type Outcome struct {
	// Phrases is the number of phrases the message normalized into.
	Phrases int
	// NewPhrases holds the texts of phrases indexed for the first time, in
	// message order. These are what the history store needs to persist.
	NewPhrases []string
	Reply      string
	Replied    bool
}

// BootstrapReport summarizes loading historical lines.
type BootstrapReport struct {
	Lines      int
	Phrases    int
	NewPhrases int
	// Kept holds, in original order, every line that contributed at least one
	// newly indexed phrase. Rewriting history with Kept drops redundant lines.
	Kept []string
}

// Stats is a point-in-time view of the corpus.
type Stats struct {
	Texts       int    `json:"interned_texts"`
	Phrases     int    `json:"phrases"`
	CommonWords int    `json:"common_words"`
	Occurrences int    `json:"occurrences"`
	Bytes       int64  `json:"bytes"`
	PoolPolicy  string `json:"pool_policy"`
}

type Brain struct {
	mu        sync.Mutex
	index     *index.Index
	generator *generator.Generator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*options)

type options struct {
	rng     generator.Source
	metrics *metrics.Metrics
}

// WithSource overrides the random source. The source is only used while the
// brain's lock is held.
func WithSource(src generator.Source) Option {
	return func(o *options) { o.rng = src }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(cfg config.BrainConfig, opts ...Option) (*Brain, error) {
	policy, err := generator.ParsePolicy(cfg.PoolPolicy)
	if err != nil {
		return nil, fmt.Errorf("configuring brain: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = newSource(cfg.Seed)
	}
	idx := index.New()
	return &Brain{
		index:     idx,
		generator: generator.New(idx, o.rng, policy),
		metrics:   o.metrics,
		logger:    slog.Default().With("component", "brain"),
	}, nil
}

func newSource(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Bootstrap inserts historical lines exactly like live messages, without
// replying, and reports which lines still carry new information.
func (b *Brain) Bootstrap(lines []string) BootstrapReport {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	report := BootstrapReport{Lines: len(lines)}
	for _, line := range lines {
		phrases, fresh := b.insert(normalizer.Normalize(line), nil)
		report.Phrases += phrases
		report.NewPhrases += len(fresh)
		if len(fresh) > 0 {
			report.Kept = append(report.Kept, line)
		}
	}
	if b.metrics != nil {
		b.metrics.MessagesTotal.WithLabelValues("bootstrap").Add(float64(len(lines)))
	}
	b.observeCorpus()
	b.logger.Info("bootstrap complete",
		"lines", report.Lines,
		"phrases", report.Phrases,
		"new_phrases", report.NewPhrases,
		"kept_lines", len(report.Kept),
		"common_words", len(b.index.CommonWords()),
		"duration", time.Since(start),
	)
	return report
}

// Process normalizes text, inserts each phrase and, when reply is true,
// generates a reply pivoting on a word from this message. The whole sequence
// runs under the brain's lock. A reply that cannot be produced returns the
// insertion outcome together with an error wrapping generator.ErrEmptyPool
// and errors.ErrNoResponse.
func (b *Brain) Process(text string, reply bool) (Outcome, error) {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metrics != nil {
		defer func() { b.metrics.ProcessLatency.Observe(time.Since(start).Seconds()) }()
	}

	var observed []index.WordID
	var out Outcome
	out.Phrases, out.NewPhrases = b.insert(normalizer.Normalize(text), &observed)
	b.observeCorpus()
	if !reply {
		return out, nil
	}

	sentence, err := b.generator.Generate(observed)
	if err != nil {
		if errors.Is(err, generator.ErrEmptyPool) {
			return out, fmt.Errorf("%w: %w", apperrors.ErrNoResponse, err)
		}
		return out, fmt.Errorf("generating reply: %w", err)
	}
	b.logger.Debug("reply generated",
		"observed_words", len(observed),
		"pool_policy", b.generator.Policy().String(),
		"reply_len", len(sentence),
	)
	out.Reply = sentence
	out.Replied = true
	return out, nil
}

// Babble generates a sentence from the whole corpus.
func (b *Brain) Babble() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sentence, err := b.generator.Generate(nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrNoResponse, err)
	}
	return sentence, nil
}

func (b *Brain) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Texts:       b.index.Texts(),
		Phrases:     b.index.PhraseCount(),
		CommonWords: len(b.index.CommonWords()),
		Occurrences: b.index.OccurrenceCount(),
		Bytes:       b.index.Size(),
		PoolPolicy:  b.generator.Policy().String(),
	}
}

// insert adds phrases to the index. Word ids of multi-word phrases are
// appended to observed when it is non-nil; single-word phrases are not index
// keys and so never become pivots.
func (b *Brain) insert(phrases []normalizer.Phrase, observed *[]index.WordID) (int, []string) {
	var fresh []string
	for _, phrase := range phrases {
		res := b.index.InsertPhrase(phrase)
		b.recordInsert(res)
		if !res.Indexed {
			continue
		}
		if observed != nil {
			*observed = append(*observed, res.Words...)
		}
		if res.NewlyIndexed {
			fresh = append(fresh, phrase.String())
		}
	}
	return len(phrases), fresh
}

func (b *Brain) recordInsert(res index.InsertResult) {
	if b.metrics == nil {
		return
	}
	outcome := metrics.PhraseDuplicate
	switch {
	case !res.Indexed:
		outcome = metrics.PhraseSingleWord
	case res.NewlyIndexed:
		outcome = metrics.PhraseNew
	}
	b.metrics.PhrasesInsertedTotal.WithLabelValues(outcome).Inc()
}

func (b *Brain) observeCorpus() {
	if b.metrics == nil {
		return
	}
	b.metrics.CorpusTexts.Set(float64(b.index.Texts()))
	b.metrics.CorpusPhrases.Set(float64(b.index.PhraseCount()))
	b.metrics.CorpusCommonWords.Set(float64(len(b.index.CommonWords())))
}
