package novelty

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"listings_dashboard/internal/model"
)

// SeenKey is the durable key holding the acknowledged identifiers.
const SeenKey = "dashboard.seenIds"

// Store is the durable key/value store backing the tracker.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Tracker owns the acknowledged identifier set and keeps it persisted.
type Tracker struct {
	store Store
	log   *zap.Logger

	mu    sync.RWMutex
	order []int64
	seen  SeenSet
}

// NewTracker creates an empty tracker. Call Load to restore persisted state.
func NewTracker(store Store, log *zap.Logger) *Tracker {
	return &Tracker{
		store: store,
		log:   log,
		seen:  SeenSet{},
	}
}

// Load restores the set from the store. Unreadable values are dropped:
// a corrupt document loads as empty and non-numeric entries are skipped.
func (t *Tracker) Load(ctx context.Context) error {
	raw, found, err := t.store.Get(ctx, SeenKey)
	if err != nil {
		return fmt.Errorf("load seen ids: %w", err)
	}

	var ids []int64
	if found {
		ids = parseSeen(raw)
		if ids == nil {
			t.log.Warn("ignoring unreadable seen ids", zap.String("key", SeenKey), zap.Int("bytes", len(raw)))
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = t.order[:0]
	t.seen = SeenSet{}
	for _, id := range ids {
		if !t.seen.Has(id) {
			t.seen[id] = struct{}{}
			t.order = append(t.order, id)
		}
	}
	t.log.Info("seen ids loaded", zap.Int("count", len(t.order)))
	return nil
}

// parseSeen decodes a JSON array of identifiers. It returns nil when raw is
// not an array.
func parseSeen(raw []byte) []int64 {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return nil
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			continue
		}
		ids = append(ids, int64(f))
	}
	return ids
}

// MarkAsRead acknowledges the given records and persists the full set.
// Only positive identifiers are recorded. It returns how many were added.
func (t *Tracker) MarkAsRead(ctx context.Context, records []model.Listing) (int, error) {
	return t.MarkIDs(ctx, model.Identifiers(records))
}

// MarkIDs acknowledges identifiers directly. Marking an identifier twice has
// no further effect.
func (t *Tracker) MarkIDs(ctx context.Context, ids []int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := append([]int64(nil), t.order...)
	added := make(SeenSet)
	for _, id := range ids {
		if id <= 0 || t.seen.Has(id) || added.Has(id) {
			continue
		}
		added[id] = struct{}{}
		next = append(next, id)
	}
	if len(added) == 0 {
		return 0, nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return 0, fmt.Errorf("encode seen ids: %w", err)
	}
	if err := t.store.Put(ctx, SeenKey, data); err != nil {
		return 0, fmt.Errorf("persist seen ids: %w", err)
	}

	for id := range added {
		t.seen[id] = struct{}{}
	}
	t.order = next
	return len(added), nil
}

// Seen returns a copy of the acknowledged set.
func (t *Tracker) Seen() SeenSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(SeenSet, len(t.seen))
	for id := range t.seen {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the acknowledged identifiers in the order they were added.
func (t *Tracker) IDs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]int64{}, t.order...)
}

// Contains reports whether id was acknowledged.
func (t *Tracker) Contains(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seen.Has(id)
}
