package notifications

// evictedIDs remembers the ids retention removed, so a late redelivery of an
// evicted notification is still recognized as a duplicate. Oldest ids are
// forgotten first once capacity is reached.
type evictedIDs struct {
	capacity int
	order    []string
	set      map[string]struct{}
}

const defaultEvictedCapacity = 2048

func newEvictedIDs(capacity int) *evictedIDs {
	return &evictedIDs{
		capacity: capacity,
		set:      make(map[string]struct{}, capacity),
	}
}

func (e *evictedIDs) Has(id string) bool {
	_, ok := e.set[id]
	return ok
}

func (e *evictedIDs) Remember(id string) {
	if e.capacity <= 0 || e.Has(id) {
		return
	}
	if len(e.order) >= e.capacity {
		delete(e.set, e.order[0])
		e.order = e.order[1:]
	}
	e.order = append(e.order, id)
	e.set[id] = struct{}{}
}
