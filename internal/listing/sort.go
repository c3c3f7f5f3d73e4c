// Package listing orders, pages and summarizes normalized listings.
package listing

import (
	"sort"
	"strings"
	"time"

	"listings_dashboard/internal/model"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"2/1/2006 15:04:05",
	"2/1/2006",
}

// ParseDate parses a PostDate value in one of the formats the scraper emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type recencyKey struct {
	dated bool
	at    time.Time
	id    int64
}

// newer reports whether a sorts before b in newest-first order. Dated
// listings come before undated ones.
func (a recencyKey) newer(b recencyKey) bool {
	if a.dated != b.dated {
		return a.dated
	}
	if a.dated {
		return a.at.After(b.at)
	}
	return a.id > b.id
}

// Sort returns a copy of records ordered by option. The ordering is stable
// and records is never modified. An unknown option keeps input order.
func Sort(records []model.Listing, option model.SortOption) []model.Listing {
	out := make([]model.Listing, len(records))
	copy(out, records)

	switch option {
	case model.SortNewest, model.SortOldest:
		keys := make([]recencyKey, len(out))
		for i, l := range out {
			at, ok := ParseDate(l.PostDate)
			keys[i] = recencyKey{dated: ok, at: at, id: l.Identifier}
		}
		idx := indexes(len(out))
		sort.SliceStable(idx, func(i, j int) bool {
			a, b := keys[idx[i]], keys[idx[j]]
			if option == model.SortOldest {
				return b.newer(a)
			}
			return a.newer(b)
		})
		return permute(out, idx)
	case model.SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case model.SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	return out
}

func indexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func permute(records []model.Listing, idx []int) []model.Listing {
	out := make([]model.Listing, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}
