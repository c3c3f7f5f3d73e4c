package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listings_dashboard/internal/listing"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/novelty"
)

// Update describes the effect of a fetch on the session.
type Update struct {
	Applied bool
	// Notify is true when the new-item count just rose from zero.
	Notify bool
	New    novelty.Result
	Seq    uint64
}

// View is what a client needs to render the dashboard.
type View struct {
	Page      listing.Page     `json:"page"`
	Overview  listing.Overview `json:"overview"`
	AlertLog  []string         `json:"alert_log"`
	New       novelty.Result   `json:"new"`
	NewCount  int              `json:"new_count"`
	Sort      model.SortOption `json:"sort"`
	FetchedAt *time.Time       `json:"fetched_at,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Session serializes access to the dashboard state and keeps the seen set
// and notification latch in step with it.
type Session struct {
	mu       sync.Mutex
	state    State
	tracker  *novelty.Tracker
	latch    novelty.Latch
	pageSize int
}

// NewSession creates a session from a loaded tracker.
func NewSession(tracker *novelty.Tracker, pageSize int) *Session {
	return &Session{
		state:    NewState(model.SortNewest, tracker.Seen()),
		tracker:  tracker,
		pageSize: pageSize,
	}
}

// Fetched applies the records produced by fetch number seq.
func (s *Session) Fetched(seq uint64, records []model.Listing, at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := ApplyFetch(s.state, seq, records, at)
	return s.commit(next, ok)
}

// FetchFailed records that fetch number seq failed.
func (s *Session) FetchFailed(seq uint64, err error, at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := ApplyFetchError(s.state, seq, err, at)
	return s.commit(next, ok)
}

func (s *Session) commit(next State, applied bool) Update {
	if !applied {
		return Update{Seq: s.state.Seq}
	}
	s.state = next
	return Update{
		Applied: true,
		Notify:  s.latch.Observe(next.New.Count()),
		New:     next.New,
		Seq:     next.Seq,
	}
}

// SetSort changes the display order.
func (s *Session) SetSort(option model.SortOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ApplySort(s.state, option)
}

// Acknowledge marks the given identifiers as read and persists them.
// It returns how many identifiers were newly acknowledged.
func (s *Session) Acknowledge(ctx context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acknowledge(ctx, ids)
}

// AcknowledgeNew marks every currently new listing as read.
func (s *Session) AcknowledgeNew(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acknowledge(ctx, model.Identifiers(s.state.New.Items))
}

func (s *Session) acknowledge(ctx context.Context, ids []int64) (int, error) {
	next, added := Acknowledge(s.state, ids)
	if len(added) == 0 {
		return 0, nil
	}
	if _, err := s.tracker.MarkIDs(ctx, added); err != nil {
		return 0, fmt.Errorf("acknowledge: %w", err)
	}
	s.state = next
	s.latch.Observe(next.New.Count())
	return len(added), nil
}

// View renders the given 1-based page. A size of zero or less uses the
// session's default page size.
func (s *Session) View(page, size int) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size <= 0 {
		size = s.pageSize
	}
	st := s.state
	v := View{
		Page:      listing.Paginate(st.Sorted, page, size),
		Overview:  listing.Summarize(st.Records),
		AlertLog:  append([]string{}, st.AlertLog...),
		New:       st.New,
		NewCount:  st.New.Count(),
		Sort:      st.Sort,
		LastError: st.LastError,
	}
	if !st.FetchedAt.IsZero() {
		at := st.FetchedAt
		v.FetchedAt = &at
	}
	return v
}

// NewItems returns the current novelty result.
func (s *Session) NewItems() novelty.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.New
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SeenIDs returns the acknowledged identifiers in the order they were added.
func (s *Session) SeenIDs() []int64 {
	return s.tracker.IDs()
}
