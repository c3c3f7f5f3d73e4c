// Package novelty decides which listings are new to the user and remembers
// which ones were acknowledged.
package novelty

import (
	"sort"

	"listings_dashboard/internal/model"
)

// LatestCount is how many of the highest identifiers always count as recent.
const LatestCount = 3

// SeenSet is the set of acknowledged listing identifiers.
type SeenSet map[int64]struct{}

// Has reports whether id was acknowledged.
func (s SeenSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Result is the outcome of a novelty evaluation.
type Result struct {
	Items []model.Listing `json:"items"`
	// Messages holds alert log lines shown as new when there are no listings.
	Messages []string `json:"messages"`
}

// Count returns the number of new entries.
func (r Result) Count() int {
	return len(r.Items) + len(r.Messages)
}

// Detect returns the records that are new: a positive identifier that is one
// of the three highest or at least the maximum, and not yet acknowledged.
// Results keep input order.
func Detect(records []model.Listing, seen SeenSet) []model.Listing {
	var highest int64
	for _, l := range records {
		if l.Identifier > highest {
			highest = l.Identifier
		}
	}

	byID := make([]model.Listing, len(records))
	copy(byID, records)
	sort.SliceStable(byID, func(i, j int) bool { return byID[i].Identifier > byID[j].Identifier })

	latest := make(map[int64]bool, LatestCount)
	for _, l := range byID[:min(LatestCount, len(byID))] {
		if l.Identifier > 0 {
			latest[l.Identifier] = true
		}
	}

	out := []model.Listing{}
	for _, l := range records {
		id := l.Identifier
		if id <= 0 || seen.Has(id) {
			continue
		}
		if latest[id] || id >= highest {
			out = append(out, l)
		}
	}
	return out
}

// Evaluate computes the new entries for the current collection. With no
// records, up to three alert log lines are reported as new instead.
func Evaluate(records []model.Listing, alertLog []string, seen SeenSet) Result {
	if len(records) == 0 {
		msgs := make([]string, 0, LatestCount)
		msgs = append(msgs, alertLog[:min(LatestCount, len(alertLog))]...)
		return Result{Items: []model.Listing{}, Messages: msgs}
	}
	return Result{Items: Detect(records, seen), Messages: []string{}}
}
