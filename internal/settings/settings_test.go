package settings

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

// fakeKV stands in for the namespaced redis client.
type fakeKV struct {
	values map[string]string
	err    error
}

func newFakeKV() *fakeKV { return &fakeKV{values: make(map[string]string)} }

func (f *fakeKV) Lookup(_ context.Context, name string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeKV) Store(_ context.Context, name, value string, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[name] = value
	return nil
}

func (f *fakeKV) Forget(_ context.Context, names ...string) (int64, error) {
	var n int64
	for _, k := range names {
		if _, ok := f.values[k]; ok {
			n++
		}
		delete(f.values, k)
	}
	return n, f.err
}

func TestValidateProbability(t *testing.T) {
	for _, p := range []float64{0, 0.25, 1} {
		assert.NoError(t, ValidateProbability(p))
	}
	for _, p := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ValidateProbability(p), apperrors.ErrInvalidInput)
	}
}

func TestStores(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(0.5),
		"redis":  &RedisStore{client: newFakeKV(), def: 0.5},
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := s.ReplyProbability(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, 0.5, p)

			require.NoError(t, s.SetReplyProbability(ctx, 42, 0.1))
			p, err = s.ReplyProbability(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, 0.1, p)

			p, err = s.ReplyProbability(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, 0.5, p)

			assert.ErrorIs(t, s.SetReplyProbability(ctx, 42, 2), apperrors.ErrInvalidInput)

			require.NoError(t, s.ResetReplyProbability(ctx, 42))
			p, err = s.ReplyProbability(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, 0.5, p)
		})
	}
}

func TestRedisStoreKeysAndErrors(t *testing.T) {
	kv := newFakeKV()
	s := &RedisStore{client: kv, def: 1}
	ctx := context.Background()

	require.NoError(t, s.SetReplyProbability(ctx, -100, 0.75))
	assert.Equal(t, "0.75", kv.values["replyprob:-100"])

	kv.values["replyprob:5"] = "lots"
	_, err := s.ReplyProbability(ctx, 5)
	assert.Error(t, err)

	kv.err = errors.New("connection refused")
	_, err = s.ReplyProbability(ctx, 1)
	assert.ErrorContains(t, err, "connection refused")
}
