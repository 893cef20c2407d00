package editor

// idSet is an insertion-ordered set of ids.
type idSet struct {
	order []string
	index map[string]int
}

func newIDSet() *idSet {
	return &idSet{index: make(map[string]int)}
}

func (s *idSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) Len() int { return len(s.order) }

func (s *idSet) Add(id string) {
	if s.Has(id) {
		return
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
}

func (s *idSet) Remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	copy(s.order[i:], s.order[i+1:])
	s.order = s.order[:len(s.order)-1]
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
}

// RemoveAll drops every id in ids with a single compaction pass.
func (s *idSet) RemoveAll(ids map[string]struct{}) {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, drop := ids[id]; drop {
			delete(s.index, id)
			continue
		}
		s.index[id] = len(kept)
		kept = append(kept, id)
	}
	s.order = kept
}

// Toggle flips membership and reports whether id is now present.
func (s *idSet) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// ToggleAll flips membership of every id in ids, which must be distinct.
// Removals happen in one compaction pass; additions keep the order of ids.
func (s *idSet) ToggleAll(ids []string) {
	drop := make(map[string]struct{})
	for _, id := range ids {
		if s.Has(id) {
			drop[id] = struct{}{}
		}
	}
	if len(drop) > 0 {
		s.RemoveAll(drop)
	}
	for _, id := range ids {
		if _, removed := drop[id]; !removed {
			s.Add(id)
		}
	}
}

func (s *idSet) Clear() {
	s.order = s.order[:0]
	clear(s.index)
}

// Slice returns a copy of the ids in insertion order.
func (s *idSet) Slice() []string {
	return append([]string{}, s.order...)
}
