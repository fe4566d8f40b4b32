package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RepliesTotal.WithLabelValues(ReplySent).Inc()
	m.PhrasesInsertedTotal.WithLabelValues(PhraseNew).Add(2)
	m.CorpusPhrases.Set(2)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RepliesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PhrasesInsertedTotal.WithLabelValues(PhraseNew)))
	assert.Panics(t, func() { New(reg) }, "registering twice must fail")
}

func TestExporterServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).CorpusPhrases.Set(7)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewExporter(reg).Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "corpus_phrases 7")

	resp, err = http.Post("http://"+ln.Addr().String()+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
