package novelty

// Latch fires once when the new-item count rises from zero. It re-arms only
// once the count has dropped back to zero.
// A Latch is not safe for concurrent use.
type Latch struct {
	prev int
}

// Observe records the current count and reports whether a notification is due.
func (l *Latch) Observe(count int) bool {
	fire := l.prev == 0 && count > 0
	l.prev = count
	return fire
}
