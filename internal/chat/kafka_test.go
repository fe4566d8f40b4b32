package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/resilience"
)

type fakePublisher struct {
	events []kafka.Event
	fails  int
}

func (f *fakePublisher) Publish(_ context.Context, e kafka.Event) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("broker not available")
	}
	f.events = append(f.events, e)
	return nil
}

func TestKafkaHandler(t *testing.T) {
	f := newFixture(t)
	handle := KafkaHandler(f.svc)
	ctx := context.Background()

	value, err := json.Marshal(Message{ChatID: 5, Text: "good morning everyone"})
	require.NoError(t, err)
	require.NoError(t, handle(ctx, kafka.Delivery{
		Key:     []byte("5"),
		Value:   value,
		Headers: map[string]string{kafka.HeaderMessageID: "k1"},
	}))
	assert.Equal(t, 1, f.svc.Stats().Phrases)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MessagesTotal.WithLabelValues(SourceKafka)))
	sent := f.sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "k1", sent[0].InReplyTo)

	// Malformed and rejected messages are committed, not retried.
	assert.NoError(t, handle(ctx, kafka.Delivery{Value: []byte("{not json")}))
	value, err = json.Marshal(Message{ChatID: 5, Text: "/bogus"})
	require.NoError(t, err)
	assert.NoError(t, handle(ctx, kafka.Delivery{Value: value}))
}

func TestKafkaRepliesRetriesPublish(t *testing.T) {
	pub := &fakePublisher{fails: 1}
	sink := &KafkaReplies{
		producer: pub,
		retry:    resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}

	reply := Reply{ChatID: -42, InReplyTo: "m1", Text: "hello there"}
	require.NoError(t, sink.SendReply(context.Background(), reply))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "-42", pub.events[0].Key)
	assert.Equal(t, reply, pub.events[0].Value)
	assert.Equal(t, "m1", pub.events[0].Headers[kafka.HeaderMessageID])
}
