package bridge

// seenSet records message ids in arrival order. With a positive capacity the
// oldest id is evicted once the set is full; zero means unbounded.
type seenSet struct {
	capacity int
	ids      map[string]struct{}
	order    []string
	head     int
}

func newSeenSet(capacity int) *seenSet {
	if capacity < 0 {
		capacity = 0
	}
	return &seenSet{capacity: capacity, ids: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (s *seenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	if s.capacity == 0 {
		return true
	}
	if len(s.order) < s.capacity {
		s.order = append(s.order, id)
		return true
	}
	// Ring buffer: overwrite the oldest slot.
	delete(s.ids, s.order[s.head])
	s.order[s.head] = id
	s.head = (s.head + 1) % s.capacity
	return true
}

func (s *seenSet) Len() int {
	return len(s.ids)
}
