package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type memoryDoc struct {
	data      []byte
	updatedAt int64
}

// MemoryStore is the in-process DocStore, used when no redis address is
// configured and by tests. Subscribers with full channels miss updates,
// which is fine: the contract already requires tolerating gaps and rereads.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
	subs map[string]map[int]chan []byte
	next int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memoryDoc),
		subs: make(map[string]map[int]chan []byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, roomID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(doc.data))
	copy(out, doc.data)
	return out, nil
}

func (s *MemoryStore) MergeWrite(_ context.Context, roomID string, doc []byte, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.docs[roomID]; ok && cur.updatedAt > updatedAt {
		// Stale writer: drop silently, the newer document already won.
		return nil
	}

	stored := make([]byte, len(doc))
	copy(stored, doc)
	s.docs[roomID] = memoryDoc{data: stored, updatedAt: updatedAt}

	for _, ch := range s.subs[roomID] {
		select {
		case ch <- stored:
		default:
			zap.L().Debug(
				"memory store subscriber lagging, update skipped",
				zap.String("room_id", roomID),
			)
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, roomID string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[roomID] == nil {
		s.subs[roomID] = make(map[int]chan []byte)
	}
	id := s.next
	s.next++

	ch := make(chan []byte, 16)
	s.subs[roomID][id] = ch

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[roomID][id]; ok {
			delete(s.subs[roomID], id)
			close(sub)
		}
	}
	return ch, stop, nil
}
