package sources

import (
	"context"
	"sync"

	"github.com/streakhq/curator/internal/contracts"
)

// Static is a source registry backed by configuration.
// Replace swaps the lists atomically; readers always get copies.
type Static struct {
	mu     sync.RWMutex
	assets []string
	topics []string
}

// NewStatic creates a registry with the given assets and topics
func NewStatic(assets, topics []string) *Static {
	s := &Static{}
	s.Replace(assets, topics)
	return s
}

var _ contracts.SourceRegistry = (*Static)(nil)

// Assets returns the enabled trading pairs
func (s *Static) Assets(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.assets...)
}

// Topics returns the enabled social topics
func (s *Static) Topics(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.topics...)
}

// Replace swaps both lists
func (s *Static) Replace(assets, topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = append([]string(nil), assets...)
	s.topics = append([]string(nil), topics...)
}
