package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/metrics"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/messages", normalizePath("/api/v1/messages"))
	assert.Equal(t, "/api/v1/chats/{id}/probability", normalizePath("/api/v1/chats/1234/probability"))
	assert.Equal(t, "/api/v1/chats/{id}", normalizePath("/api/v1/chats/1234"))
}

func TestMetricsCountsRequests(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/chats/9/probability", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("put", "/api/v1/chats/{id}/probability", "201"))
	assert.Equal(t, 1.0, got)
}

func TestMessageIDGeneratedAndPropagated(t *testing.T) {
	var seen string
	h := MessageID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.MessageID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(MessageIDHeader))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil)
	req.Header.Set(MessageIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestTimeoutWritesGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := Timeout(5 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestTimeoutPassesFastResponses(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Reply", "yes")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Reply"))
}

func TestTimeoutFencesLateWrites(t *testing.T) {
	late := make(chan error, 1)
	h := Timeout(5 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(5 * time.Millisecond)
		w.Header().Set("X-Late", "1")
		_, err := w.Write([]byte("too late"))
		late <- err
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ErrorIs(t, <-late, http.ErrHandlerTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"request timed out"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Late"))
}

func TestTimeoutRepanics(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestCORS(t *testing.T) {
	called := 0
	h := CORS([]string{"https://chat.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/messages", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://chat.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), MessageIDHeader)
	assert.Equal(t, 0, called)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, called)
}
