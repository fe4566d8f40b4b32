package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain/generator"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/history"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/settings"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/tracing"
)

// ReplySink delivers replies to the chat platform.
type ReplySink interface {
	SendReply(ctx context.Context, reply Reply) error
}

type Service struct {
	brain       *brain.Brain
	history     history.Store
	settings    settings.Store
	sink        ReplySink
	limiter     *ReplyLimiter
	breaker     *resilience.CircuitBreaker
	metrics     *metrics.Metrics
	retry       resilience.RetryConfig
	sendTimeout time.Duration
	tracing     bool
	roll        func() float64
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Service)

func WithReplySink(sink ReplySink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithReplyLimiter caps how often each chat is answered. Messages over the
// budget are still learned.
func WithReplyLimiter(l *ReplyLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracing logs a span tree per handled message at debug level.
func WithTracing(enabled bool) Option {
	return func(s *Service) { s.tracing = enabled }
}

// WithRoll replaces the uniform [0, 1) roll compared against the reply
// probability.
func WithRoll(roll func() float64) Option {
	return func(s *Service) { s.roll = roll }
}

func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) { s.sendTimeout = d }
}

func WithHistoryRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

func NewService(b *brain.Brain, hist history.Store, st settings.Store, opts ...Option) *Service {
	s := &Service{
		brain:       b,
		history:     hist,
		settings:    st,
		sendTimeout: 5 * time.Second,
		roll:        rand.Float64,
		now:         time.Now,
		logger:      logger.WithComponent("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	cbCfg := resilience.CircuitBreakerConfig{FailureThreshold: 5}
	if s.metrics != nil {
		gauge := s.metrics.CircuitBreakerState
		cbCfg.OnStateChange = func(name string, state resilience.State) {
			gauge.WithLabelValues(name).Set(float64(state))
		}
		if s.retry.OnRetry == nil {
			retries := s.metrics.RetriesTotal.WithLabelValues("history-append")
			s.retry.OnRetry = func(int, error) { retries.Inc() }
		}
	}
	s.breaker = resilience.NewCircuitBreaker("reply-sink", cbCfg)
	return s
}

// HandleMessage runs one chat message through the bot: commands are executed,
// anything else is learned and, depending on the chat's reply probability,
// answered. History and delivery failures are logged, not returned.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (*Outcome, error) {
	if err := ValidateMessage(&msg); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	ctx = logger.WithAttrs(logger.WithMessageID(ctx, msg.MessageID), "chat_id", msg.ChatID)
	log := logger.Enrich(ctx, s.logger)

	if s.tracing {
		var span *tracing.Span
		ctx, span = tracing.Start(ctx, "chat.handle", msg.MessageID)
		span.SetAttr("chat_id", msg.ChatID)
		defer func() {
			span.End()
			span.Log(log)
		}()
	}
	if s.metrics != nil && msg.Source != "" {
		s.metrics.MessagesTotal.WithLabelValues(msg.Source).Inc()
	}

	if isCommand(msg.Text) {
		return s.handleCommand(ctx, log, msg)
	}

	reply := s.shouldReply(ctx, log, msg.ChatID)
	limited := reply && s.limiter != nil && !s.limiter.Allow(msg.ChatID)
	if limited {
		reply = false
	}
	result, err := s.process(ctx, msg.Text, reply)
	outcome := &Outcome{
		MessageID:  msg.MessageID,
		NewPhrases: len(result.NewPhrases),
	}
	s.persist(ctx, log, result.NewPhrases)

	if err != nil {
		if errors.Is(err, generator.ErrEmptyPool) {
			s.countReply(metrics.ReplyEmptyPool)
			log.Info("no reply possible yet", "reason", err)
			return outcome, nil
		}
		s.countReply(metrics.ReplyError)
		return outcome, fmt.Errorf("processing message: %w", err)
	}
	if !result.Replied {
		if limited {
			outcome.RateLimited = true
			s.countReply(metrics.ReplyRateLimited)
		} else {
			s.countReply(metrics.ReplySkipped)
		}
		return outcome, nil
	}

	outcome.Replied = true
	outcome.Reply = result.Reply
	outcome.Delivered = s.deliver(ctx, log, Reply{
		ChatID:      msg.ChatID,
		InReplyTo:   msg.MessageID,
		Text:        result.Reply,
		GeneratedAt: s.now().UTC(),
	})
	if s.sink == nil {
		// Returned inline to the caller.
		s.countReply(metrics.ReplySent)
	}
	log.Info("generated response", "reply", result.Reply, "delivered", outcome.Delivered)
	return outcome, nil
}

// SetReplyProbability sets, or with reset drops, a chat's override.
func (s *Service) SetReplyProbability(ctx context.Context, chatID int64, p float64, reset bool) error {
	if reset {
		return s.settings.ResetReplyProbability(ctx, chatID)
	}
	return s.settings.SetReplyProbability(ctx, chatID, p)
}

func (s *Service) ReplyProbability(ctx context.Context, chatID int64) (float64, error) {
	return s.settings.ReplyProbability(ctx, chatID)
}

func (s *Service) Stats() brain.Stats {
	return s.brain.Stats()
}

func (s *Service) handleCommand(ctx context.Context, log *slog.Logger, msg Message) (*Outcome, error) {
	cmd, err := parseCommand(msg.Text)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{MessageID: msg.MessageID, Command: cmd.name}

	switch cmd.name {
	case commandSetProb:
		p, reset, err := probabilityArg(cmd.args[0])
		if err != nil {
			return nil, err
		}
		if err := s.SetReplyProbability(ctx, msg.ChatID, p, reset); err != nil {
			return nil, fmt.Errorf("setting reply probability: %w", err)
		}
		log.Info("reply probability updated", "probability", p, "reset", reset)
	case commandStats:
		st := s.brain.Stats()
		outcome.Replied = true
		outcome.Reply = fmt.Sprintf("%d phrases, %d common words, %d interned texts",
			st.Phrases, st.CommonWords, st.Texts)
		outcome.Delivered = s.deliver(ctx, log, Reply{
			ChatID:      msg.ChatID,
			InReplyTo:   msg.MessageID,
			Text:        outcome.Reply,
			GeneratedAt: s.now().UTC(),
		})
	}
	return outcome, nil
}

// shouldReply rolls against the chat's reply probability. A settings store
// failure means the message is learned but not answered.
func (s *Service) shouldReply(ctx context.Context, log *slog.Logger, chatID int64) bool {
	p, err := s.settings.ReplyProbability(ctx, chatID)
	if err != nil {
		log.Warn("reply probability unavailable, not replying", "error", err)
		return false
	}
	return s.roll() < p
}

func (s *Service) process(ctx context.Context, text string, reply bool) (brain.Outcome, error) {
	if s.tracing {
		_, span := tracing.StartChild(ctx, "brain.process")
		defer span.End()
		out, err := s.brain.Process(text, reply)
		span.SetAttr("phrases", out.Phrases)
		span.SetAttr("new_phrases", len(out.NewPhrases))
		return out, err
	}
	return s.brain.Process(text, reply)
}

func (s *Service) persist(ctx context.Context, log *slog.Logger, phrases []string) {
	if len(phrases) == 0 || s.history == nil {
		return
	}
	if s.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartChild(ctx, "history.append")
		span.SetAttr("lines", len(phrases))
		defer span.End()
	}
	err := resilience.Retry(ctx, "history-append", s.retry, func(ctx context.Context) error {
		return s.history.Append(ctx, phrases...)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.HistoryAppendFailures.Add(float64(len(phrases)))
		}
		log.Error("couldn't store phrases in history", "phrases", phrases, "error", err)
	}
}

func (s *Service) deliver(ctx context.Context, log *slog.Logger, reply Reply) bool {
	if s.sink == nil {
		return false
	}
	if s.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartChild(ctx, "reply.send")
		defer span.End()
	}
	err := s.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, s.sendTimeout, "send-reply", func(ctx context.Context) error {
			return s.sink.SendReply(ctx, reply)
		})
	})
	if err != nil {
		s.countReply(metrics.ReplyError)
		log.Error("couldn't send reply", "reply", reply.Text, "error", err)
		return false
	}
	s.countReply(metrics.ReplySent)
	return true
}

func (s *Service) countReply(outcome string) {
	if s.metrics != nil {
		s.metrics.RepliesTotal.WithLabelValues(outcome).Inc()
	}
}
