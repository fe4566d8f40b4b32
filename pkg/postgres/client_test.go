package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

func TestCode(t *testing.T) {
	err := fmt.Errorf("inserting history line: %w", &pq.Error{Code: "23505"})
	assert.Equal(t, "23505", Code(err))
	assert.Empty(t, Code(errors.New("connection reset")))
	assert.Empty(t, Code(nil))
}

func TestNewUnreachableServer(t *testing.T) {
	_, err := New(context.Background(), config.PostgresConfig{
		Host:            "127.0.0.1",
		Port:            1,
		Database:        "phrasebot",
		User:            "phrasebot",
		Password:        "unused",
		SSLMode:         "disable",
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
