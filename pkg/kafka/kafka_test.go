package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

type payload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// fakeReader serves queued results, then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []fetchResult
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) == 0 {
		f.mu.Unlock()
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()
	return next.msg, next.err
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestConsumerCommitsHandledRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{cancel: cancel, queue: []fetchResult{
		{msg: kafka.Message{Offset: 1, Value: []byte("ok"), Headers: []kafka.Header{{Key: HeaderMessageID, Value: []byte("m-1")}}}},
		{err: errors.New("broker gone")},
		{msg: kafka.Message{Offset: 2, Value: []byte("fail")}},
		{msg: kafka.Message{Offset: 3, Value: []byte("ok")}},
	}}

	var seenIDs []string
	c := newConsumer(r, "chat.incoming", func(ctx context.Context, d Delivery) error {
		seenIDs = append(seenIDs, logger.MessageID(ctx))
		if string(d.Value) == "fail" {
			return errors.New("handler failed")
		}
		return nil
	})
	c.minBackoff = time.Millisecond

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.Equal(t, []string{"m-1", "", ""}, seenIDs)
	assert.True(t, r.closed)
}

func TestProducerPublishesHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: slog.Default()}

	err := p.Publish(context.Background(), Event{
		Key:     "42",
		Value:   payload{ChatID: "42", Text: "hello there"},
		Headers: map[string]string{HeaderMessageID: "m-9", "content-type": "application/json"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []kafka.Header{
		{Key: "content-type", Value: []byte("application/json")},
		{Key: HeaderMessageID, Value: []byte("m-9")},
	}, w.msgs[0].Headers)

	w.err = errors.New("leader not available")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "42", Value: 1}), "publishing to kafka")
}

func TestEncodeThenDecode(t *testing.T) {
	msg, err := encode(Event{Key: "chat-1", Value: payload{ChatID: "chat-1", Text: "go to the supermarket"}})
	require.NoError(t, err)
	assert.Equal(t, []byte("chat-1"), msg.Key)
	assert.False(t, msg.Time.IsZero())
	assert.Empty(t, msg.Headers)

	got, err := DecodeJSON[payload](msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "go to the supermarket", got.Text)
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	_, err := DecodeJSON[payload]([]byte("{not json"))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestEncodeRejectsUnmarshalableValue(t *testing.T) {
	_, err := encode(Event{Key: "k", Value: make(chan int)})
	assert.Error(t, err)
}
