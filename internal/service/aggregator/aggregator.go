package aggregator

import "sync"

// Aggregator holds the deduplicated, insertion-ordered set of items detected
// during one session. All methods are safe for concurrent use; Snapshot never
// observes a half-applied Add or Clear.
type Aggregator struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	items []string
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{seen: make(map[string]struct{})}
}

// Add inserts item and reports whether it was new. Items are compared by
// exact string equality; callers normalize beforehand.
func (a *Aggregator) Add(item string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.seen[item]; exists {
		return false
	}
	a.seen[item] = struct{}{}
	a.items = append(a.items, item)
	return true
}

// Clear forgets every item.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seen = make(map[string]struct{})
	a.items = nil
}

// Snapshot returns a copy of the items in first-insertion order. The result
// is never nil.
func (a *Aggregator) Snapshot() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snapshot := make([]string, len(a.items))
	copy(snapshot, a.items)
	return snapshot
}

// Len returns the number of distinct items.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}
