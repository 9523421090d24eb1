package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/openrport/dashnotify/share/logger"
)

// Persister writes the durable records of a State. Each call is a full rewrite.
type Persister interface {
	SaveNotifications(ctx context.Context, list []Notification) error
	SaveSettings(ctx context.Context, settings Settings) error
}

// Store is the single writer of State. All transitions are serialized by one
// mutex, and a changed record is written out before the lock is released, so
// writes land in the same order as the transitions that caused them.
// Persistence failures are logged: the in-memory state stays authoritative and
// the next write rewrites the whole record anyway.
type Store struct {
	mu        sync.RWMutex
	state     State
	persister Persister
	logger    *logger.Logger
	evicted   *evictedIDs
}

func NewStore(initial State, persister Persister, l *logger.Logger) *Store {
	return &Store{
		state:     initial,
		persister: persister,
		logger:    l,
		evicted:   newEvictedIDs(defaultEvictedCapacity),
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Connected
}

func (s *Store) Add(ctx context.Context, n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted.Has(n.ID) {
		return false
	}
	next, changed := s.state.Add(n)
	s.commitList(ctx, next, changed)
	return changed
}

func (s *Store) AddBatch(ctx context.Context, batch []Notification) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, fresh := s.state.AddBatch(s.notEvicted(batch))
	s.commitList(ctx, next, len(fresh) > 0)
	return fresh
}

func (s *Store) MarkRead(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.MarkRead(id)
	s.commitList(ctx, next, changed)
	return changed
}

func (s *Store) MarkAllRead(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.MarkAllRead()
	s.commitList(ctx, next, changed)
	return changed
}

func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.Remove(id)
	s.commitList(ctx, next, changed)
	return changed
}

func (s *Store) Clear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.Clear()
	s.commitList(ctx, next, changed)
	return changed
}

func (s *Store) Prune(ctx context.Context, now time.Time, policy RetentionPolicy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.Prune(now, policy)
	if changed {
		kept := make(map[string]struct{}, len(next.Notifications))
		for _, n := range next.Notifications {
			kept[n.ID] = struct{}{}
		}
		for _, n := range s.state.Notifications {
			if _, ok := kept[n.ID]; !ok {
				s.evicted.Remember(n.ID)
			}
		}
	}
	s.commitList(ctx, next, changed)
	return changed
}

// WasEvicted reports whether retention removed id earlier in this process.
func (s *Store) WasEvicted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted.Has(id)
}

func (s *Store) notEvicted(batch []Notification) []Notification {
	out := make([]Notification, 0, len(batch))
	for _, n := range batch {
		if !s.evicted.Has(n.ID) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.UpdateSettings(patch)
	if !changed {
		return s.state.Settings, false
	}
	s.state = next
	if err := s.persister.SaveSettings(ctx, next.Settings); err != nil {
		s.logger.Errorf("failed saving settings: %v", err)
	}
	return next.Settings, true
}

// SetConnected flips the connection flag. It is not persisted.
func (s *Store) SetConnected(connected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state.SetConnected(connected)
	s.state = next
	return changed
}

func (s *Store) commitList(ctx context.Context, next State, changed bool) {
	if !changed {
		return
	}
	s.state = next
	if err := s.persister.SaveNotifications(ctx, next.Notifications); err != nil {
		s.logger.Errorf("failed saving notifications: %v", err)
	}
}
