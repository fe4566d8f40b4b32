package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat"
	chathandler "github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat/handler"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat/router"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/history"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/settings"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/resilience"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: HTTP API, Kafka consumer and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	slog.Info("starting phrasebot",
		"port", cfg.Server.Port,
		"history_backend", cfg.History.Backend,
		"kafka", cfg.Kafka.Enabled,
		"redis", cfg.Redis.Enabled,
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()

	b, err := brain.New(cfg.Brain, brain.WithMetrics(m))
	if err != nil {
		return err
	}
	store, db, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping))
	}
	report, err := history.Restore(ctx, store, b, cfg.History.CompactOnStart)
	if err != nil {
		return err
	}
	slog.Info("corpus restored", "lines", report.Lines, "new_phrases", report.NewPhrases)
	checker.Register("corpus", func(context.Context) health.ComponentHealth {
		if b.Stats().Phrases == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no phrases learned yet"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var st settings.Store = settings.NewMemoryStore(cfg.Brain.ReplyProbability)
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, chat settings kept in memory", "error", err)
		} else {
			defer redisClient.Close()
			st = settings.NewRedisStore(redisClient, cfg.Brain.ReplyProbability)
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			slog.Info("chat settings stored in redis", "addr", cfg.Redis.Addr)
		}
	}

	opts := []chat.Option{
		chat.WithMetrics(m),
		chat.WithTracing(cfg.Tracing.Enabled),
		chat.WithSendTimeout(cfg.Kafka.PublishTimeout),
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Replies)
		defer producer.Close()
		opts = append(opts, chat.WithReplySink(chat.NewKafkaReplies(producer, resilience.RetryConfig{})))
	}
	var limiter *chat.ReplyLimiter
	if cfg.Brain.ReplyBurst > 0 {
		limiter = chat.NewReplyLimiter(cfg.Brain.ReplyBurst, cfg.Brain.ReplyWindow)
		opts = append(opts, chat.WithReplyLimiter(limiter))
	}
	svc := chat.NewService(b, store, st, opts...)

	handler := router.New(chathandler.New(svc), checker, m, router.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		slog.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Incoming, chat.KafkaHandler(svc))
		slog.Info("consuming chat messages from kafka",
			"topic", cfg.Kafka.Topics.Incoming,
			"group", cfg.Kafka.ConsumerGroup,
		)
		g.Go(func() error { return consumer.Start(gctx) })
	}
	if limiter != nil {
		g.Go(func() error { return limiter.Run(gctx) })
	}
	if cfg.Metrics.Enabled {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Port) })
	}

	err = g.Wait()
	slog.Info("phrasebot stopped", "phrases", b.Stats().Phrases)
	return err
}
