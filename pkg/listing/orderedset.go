package listing

// OrderedSet is an insertion-ordered set of strings. The zero value is ready
// to use.
type OrderedSet struct {
	seen  map[string]struct{}
	items []string
}

// NewOrderedSet returns a set seeded with items, duplicates dropped
func NewOrderedSet(items ...string) *OrderedSet {
	s := &OrderedSet{}
	s.Add(items...)
	return s
}

// Add appends every item not already present and reports how many were new
func (s *OrderedSet) Add(items ...string) int {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	added := 0
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.items = append(s.items, item)
		added++
	}
	return added
}

// Contains reports membership
func (s *OrderedSet) Contains(item string) bool {
	_, ok := s.seen[item]
	return ok
}

// Len returns the number of distinct items
func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the items in insertion order
func (s *OrderedSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
