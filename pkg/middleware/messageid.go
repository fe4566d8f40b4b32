package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

// MessageIDHeader carries the caller's message id. One is generated when
// absent and echoed back on the response.
const MessageIDHeader = "X-Message-ID"

// MessageID stores the request's message id in its context for logging.
func MessageID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(MessageIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(MessageIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithMessageID(r.Context(), id)))
	})
}
