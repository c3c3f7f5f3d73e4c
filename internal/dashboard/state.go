// Package dashboard holds the listing session state and its transitions.
package dashboard

import (
	"slices"
	"time"

	"listings_dashboard/internal/listing"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/novelty"
)

// Alert log limits.
const (
	AlertLogCap        = 5
	AlertsPerFetch     = 3
	ConnectionErrorMsg = "CONNECTION ERROR: Could not fetch listing data."
)

// State is an immutable snapshot of the session. Transitions return a new
// State and never modify their input.
type State struct {
	// Seq is the sequence number of the last applied fetch.
	Seq uint64

	// Records holds the listings in fetch order, Sorted the display order.
	Records []model.Listing
	Sorted  []model.Listing
	Sort    model.SortOption

	AlertLog []string
	Seen     novelty.SeenSet
	New      novelty.Result

	FetchedAt time.Time
	LastError string
}

// NewState returns the initial state for a session.
func NewState(option model.SortOption, seen novelty.SeenSet) State {
	s := State{
		Records:  []model.Listing{},
		Sorted:   []model.Listing{},
		Sort:     option,
		AlertLog: []string{},
		Seen:     copySeen(seen),
	}
	s.New = novelty.Evaluate(s.Records, s.AlertLog, s.Seen)
	return s
}

// IsStale reports whether a fetch numbered seq started before the one that
// produced s.
func (s State) IsStale(seq uint64) bool {
	return seq <= s.Seq
}

// ApplyFetch installs a freshly fetched collection. Results of fetches older
// than the current state are ignored and reported as not applied.
func ApplyFetch(s State, seq uint64, records []model.Listing, at time.Time) (State, bool) {
	if s.IsStale(seq) {
		return s, false
	}

	next := s
	next.Seq = seq
	next.Records = slices.Clone(records)
	if next.Records == nil {
		next.Records = []model.Listing{}
	}
	next.Sorted = listing.Sort(next.Records, next.Sort)
	next.FetchedAt = at
	next.LastError = ""

	next.AlertLog = make([]string, 0, AlertsPerFetch)
	for _, l := range next.Records[:min(AlertsPerFetch, len(next.Records))] {
		next.AlertLog = append(next.AlertLog, listing.AlertLine(l))
	}

	next.New = novelty.Evaluate(next.Records, next.AlertLog, next.Seen)
	return next, true
}

// ApplyFetchError records a failed fetch. The listing collection is kept and
// the connection error is prepended to the alert log.
func ApplyFetchError(s State, seq uint64, err error, at time.Time) (State, bool) {
	if s.IsStale(seq) {
		return s, false
	}

	next := s
	next.Seq = seq
	next.FetchedAt = at
	next.LastError = err.Error()

	log := make([]string, 0, AlertLogCap)
	log = append(log, ConnectionErrorMsg)
	log = append(log, s.AlertLog...)
	next.AlertLog = log[:min(AlertLogCap, len(log))]

	next.New = novelty.Evaluate(next.Records, next.AlertLog, next.Seen)
	return next, true
}

// ApplySort changes the display order.
func ApplySort(s State, option model.SortOption) State {
	next := s
	next.Sort = option
	next.Sorted = listing.Sort(s.Records, option)
	return next
}

// Acknowledge marks identifiers as seen. It returns the new state and the
// identifiers that were not seen before; non-positive identifiers are ignored.
func Acknowledge(s State, ids []int64) (State, []int64) {
	var added []int64
	seen := copySeen(s.Seen)
	for _, id := range ids {
		if id <= 0 || seen.Has(id) {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		return s, nil
	}

	next := s
	next.Seen = seen
	next.New = novelty.Evaluate(next.Records, next.AlertLog, seen)
	return next, added
}

func copySeen(seen novelty.SeenSet) novelty.SeenSet {
	out := make(novelty.SeenSet, len(seen))
	for id := range seen {
		out[id] = struct{}{}
	}
	return out
}
