package chat

import (
	"context"
	"log/slog"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/resilience"
)

// KafkaHandler decodes Message payloads from the incoming topic and hands
// them to svc. A message without an id takes the record's message-id
// header. Malformed payloads and rejected messages are logged and
// committed; other failures leave the record uncommitted.
func KafkaHandler(svc *Service) kafka.MessageHandler {
	log := slog.Default().With("component", "chat-kafka")
	return func(ctx context.Context, d kafka.Delivery) error {
		msg, err := kafka.DecodeJSON[Message](d.Value)
		if err != nil {
			log.Warn("dropping malformed chat message", "key", string(d.Key), "offset", d.Offset, "error", err)
			return nil
		}
		if msg.MessageID == "" {
			msg.MessageID = d.Headers[kafka.HeaderMessageID]
		}
		if msg.SentAt.IsZero() {
			msg.SentAt = d.Time
		}
		msg.Source = SourceKafka
		_, err = svc.HandleMessage(ctx, msg)
		if apperrors.Rejected(err) {
			log.Info("chat message rejected", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
			return nil
		}
		return err
	}
}

type publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaReplies is a ReplySink that publishes replies keyed by chat id, so a
// chat's replies stay in order on one partition.
type KafkaReplies struct {
	producer publisher
	retry    resilience.RetryConfig
}

func NewKafkaReplies(producer *kafka.Producer, retry resilience.RetryConfig) *KafkaReplies {
	return &KafkaReplies{producer: producer, retry: retry}
}

func (k *KafkaReplies) SendReply(ctx context.Context, reply Reply) error {
	event := kafka.Event{
		Key:     strconv.FormatInt(reply.ChatID, 10),
		Value:   reply,
		Headers: map[string]string{kafka.HeaderMessageID: reply.InReplyTo},
	}
	return resilience.Retry(ctx, "publish-reply", k.retry, func(ctx context.Context) error {
		return k.producer.Publish(ctx, event)
	})
}
