package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agility-scorer/internal/domain"
)

// MemoryRemote keeps records in process. The relay server falls back to it
// when no Redis is configured.
type MemoryRemote struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
	subs    map[string]map[int]Handler
	nextID  int
	now     func() time.Time
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		records: make(map[string]domain.SessionRecord),
		subs:    make(map[string]map[int]Handler),
		now:     time.Now,
	}
}

func (m *MemoryRemote) Create(_ context.Context, rec domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Code]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, rec.Code)
	}
	rec.UpdatedAt = m.now().UTC()
	m.records[rec.Code] = rec
	return nil
}

func (m *MemoryRemote) Fetch(_ context.Context, code string) (domain.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[code]
	if !ok {
		return domain.SessionRecord{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, code)
	}
	return rec, nil
}

func (m *MemoryRemote) Push(_ context.Context, rec domain.SessionRecord) error {
	m.mu.Lock()
	if _, ok := m.records[rec.Code]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, rec.Code)
	}
	rec.UpdatedAt = m.now().UTC()
	m.records[rec.Code] = rec
	handlers := make([]Handler, 0, len(m.subs[rec.Code]))
	for _, h := range m.subs[rec.Code] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(rec)
	}
	return nil
}

func (m *MemoryRemote) Subscribe(_ context.Context, code string, h Handler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[code]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, code)
	}
	if m.subs[code] == nil {
		m.subs[code] = make(map[int]Handler)
	}
	id := m.nextID
	m.nextID++
	m.subs[code][id] = h
	return &memorySubscription{remote: m, code: code, id: id}, nil
}

type memorySubscription struct {
	remote *MemoryRemote
	code   string
	id     int
	once   sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.remote.mu.Lock()
		defer s.remote.mu.Unlock()
		delete(s.remote.subs[s.code], s.id)
		if len(s.remote.subs[s.code]) == 0 {
			delete(s.remote.subs, s.code)
		}
	})
	return nil
}
