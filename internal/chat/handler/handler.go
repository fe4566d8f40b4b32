package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

// maxBodyBytes caps request bodies; chat texts are far smaller.
const maxBodyBytes = 64 << 10

// ProbabilityRequest is the body of PUT /api/v1/chats/{id}/probability.
type ProbabilityRequest struct {
	Probability float64 `json:"probability"`
}

// ProbabilityResponse reports a chat's effective reply probability.
type ProbabilityResponse struct {
	ChatID      int64   `json:"chat_id"`
	Probability float64 `json:"probability"`
}

// Handler exposes the chat service over HTTP.
type Handler struct {
	svc    *chat.Service
	logger *slog.Logger
}

func New(svc *chat.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "chat-handler"),
	}
}

// PostMessage handles one message synchronously; a generated reply is
// returned inline as well as sent through the configured sink.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var msg chat.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg.MessageID == "" {
		msg.MessageID = logger.MessageID(ctx)
	}
	msg.Source = chat.SourceHTTP

	outcome, err := h.svc.HandleMessage(ctx, msg)
	if err != nil {
		var validationErr *chat.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		status, text := apperrors.Public(err, "message handling failed")
		if status >= http.StatusInternalServerError {
			log.Error("message handling failed", "error", err, "status_code", status)
		}
		h.writeError(w, status, text)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) GetProbability(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.ReplyProbability(r.Context(), chatID)
	if err != nil {
		logger.FromContext(r.Context()).Error("reading reply probability failed", "chat_id", chatID, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "settings unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, ProbabilityResponse{ChatID: chatID, Probability: p})
}

func (h *Handler) PutProbability(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatID(w, r)
	if !ok {
		return
	}
	var req ProbabilityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.SetReplyProbability(r.Context(), chatID, req.Probability, false); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ProbabilityResponse{ChatID: chatID, Probability: req.Probability})
}

// DeleteProbability drops the chat's override so the default applies again.
func (h *Handler) DeleteProbability(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetReplyProbability(r.Context(), chatID, 0, true); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *Handler) chatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "chat id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, text := apperrors.Public(err, "settings unavailable")
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, text)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
