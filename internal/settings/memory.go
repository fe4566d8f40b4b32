package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps settings in process memory. It is used when Redis is
// disabled; settings are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	def     float64
	perChat map[int64]float64
}

func NewMemoryStore(defaultProbability float64) *MemoryStore {
	return &MemoryStore{
		def:     defaultProbability,
		perChat: make(map[int64]float64),
	}
}

func (s *MemoryStore) ReplyProbability(_ context.Context, chatID int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.perChat[chatID]; ok {
		return p, nil
	}
	return s.def, nil
}

func (s *MemoryStore) SetReplyProbability(_ context.Context, chatID int64, p float64) error {
	if err := ValidateProbability(p); err != nil {
		return err
	}
	s.mu.Lock()
	s.perChat[chatID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ResetReplyProbability(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.perChat, chatID)
	s.mu.Unlock()
	return nil
}
