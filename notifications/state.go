package notifications

import (
	"time"
)

// State is the whole notification state of a dashboard session. Transitions
// never mutate the receiver: they return a new State and whether it differs.
// An unchanged result is the receiver itself, so callers can skip persistence
// and dispatch without comparing contents.
type State struct {
	Notifications []Notification
	Settings      Settings
	Connected     bool
}

func NewState(list []Notification, settings Settings) State {
	return State{Notifications: list, Settings: settings}
}

func (s State) index(id string) int {
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) Has(id string) bool {
	return s.index(id) >= 0
}

func (s State) UnreadCount() int {
	n := 0
	for i := range s.Notifications {
		if s.Notifications[i].Unread {
			n++
		}
	}
	return n
}

// Add prepends n unless an entry with the same id exists.
func (s State) Add(n Notification) (State, bool) {
	if s.Has(n.ID) {
		return s, false
	}
	list := make([]Notification, 0, len(s.Notifications)+1)
	list = append(list, n)
	list = append(list, s.Notifications...)
	s.Notifications = list
	return s, true
}

// AddBatch prepends the unseen entries of batch as one block, keeping their
// relative order. Duplicates inside batch collapse to the first occurrence.
// The accepted entries are returned.
func (s State) AddBatch(batch []Notification) (State, []Notification) {
	seen := make(map[string]struct{}, len(batch))
	var fresh []Notification
	for _, n := range batch {
		if _, dup := seen[n.ID]; dup || s.Has(n.ID) {
			continue
		}
		seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return s, nil
	}

	list := make([]Notification, 0, len(fresh)+len(s.Notifications))
	list = append(list, fresh...)
	list = append(list, s.Notifications...)
	s.Notifications = list
	return s, fresh
}

func (s State) MarkRead(id string) (State, bool) {
	i := s.index(id)
	if i < 0 || !s.Notifications[i].Unread {
		return s, false
	}
	list := append([]Notification(nil), s.Notifications...)
	list[i].Unread = false
	s.Notifications = list
	return s, true
}

func (s State) MarkAllRead() (State, bool) {
	if s.UnreadCount() == 0 {
		return s, false
	}
	list := append([]Notification(nil), s.Notifications...)
	for i := range list {
		list[i].Unread = false
	}
	s.Notifications = list
	return s, true
}

func (s State) Remove(id string) (State, bool) {
	i := s.index(id)
	if i < 0 {
		return s, false
	}
	list := make([]Notification, 0, len(s.Notifications)-1)
	list = append(list, s.Notifications[:i]...)
	list = append(list, s.Notifications[i+1:]...)
	s.Notifications = list
	return s, true
}

func (s State) Clear() (State, bool) {
	if len(s.Notifications) == 0 {
		return s, false
	}
	s.Notifications = nil
	return s, true
}

func (s State) UpdateSettings(patch SettingsPatch) (State, bool) {
	merged, changed := patch.Merge(s.Settings)
	if !changed {
		return s, false
	}
	s.Settings = merged
	return s, true
}

func (s State) SetConnected(connected bool) (State, bool) {
	if s.Connected == connected {
		return s, false
	}
	s.Connected = connected
	return s, true
}

// RetentionPolicy bounds the list. Zero values disable the bound.
type RetentionPolicy struct {
	MaxCount int
	MaxAge   time.Duration
}

// Expired reports whether n is already past MaxAge at now.
func (p RetentionPolicy) Expired(now time.Time, n Notification) bool {
	return p.MaxAge > 0 && n.CreatedAt.Before(now.Add(-p.MaxAge))
}

// Prune drops entries older than MaxAge and everything past MaxCount
// (counted by list position, newest first).
func (s State) Prune(now time.Time, policy RetentionPolicy) (State, bool) {
	keep := make([]Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		if policy.MaxCount > 0 && len(keep) >= policy.MaxCount {
			break
		}
		if policy.Expired(now, n) {
			continue
		}
		keep = append(keep, n)
	}
	if len(keep) == len(s.Notifications) {
		return s, false
	}
	s.Notifications = keep
	return s, true
}
