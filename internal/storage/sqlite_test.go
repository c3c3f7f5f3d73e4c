package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	_, found, err := s.Get(ctx, "dashboard.seenIds")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if found {
		t.Fatal("expected missing key")
	}

	tests := []struct {
		name  string
		value string
	}{
		{name: "first write", value: `[1,2]`},
		{name: "overwrite", value: `[1,2,3]`},
		{name: "empty array", value: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(ctx, "dashboard.seenIds", []byte(tt.value)); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, found, err := s.Get(ctx, "dashboard.seenIds")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !found {
				t.Fatal("expected key to exist")
			}
			if diff := cmp.Diff(tt.value, string(got)); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.Put(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := s.Put(ctx, "b", []byte("2")); err != nil {
		t.Fatalf("put b: %v", err)
	}

	got, _, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if diff := cmp.Diff("1", string(got)); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dashboard.db")

	first, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Put(ctx, "dashboard.seenIds", []byte(`[42]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := first.AddSubscriber(ctx, 100); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	got, found, err := second.Get(ctx, "dashboard.seenIds")
	if err != nil || !found {
		t.Fatalf("get after reopen: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(`[42]`, string(got)); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	subs, err := second.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if diff := cmp.Diff([]int64{100}, subs); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribers(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	steps := []struct {
		name   string
		add    bool
		chatID int64
		want   bool
		list   []int64
	}{
		{name: "add first", add: true, chatID: 300, want: true, list: []int64{300}},
		{name: "add second", add: true, chatID: -100, want: true, list: []int64{-100, 300}},
		{name: "add duplicate", add: true, chatID: 300, want: false, list: []int64{-100, 300}},
		{name: "remove present", chatID: 300, want: true, list: []int64{-100}},
		{name: "remove absent", chatID: 300, want: false, list: []int64{-100}},
		{name: "remove last", chatID: -100, want: true, list: nil},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			var (
				got bool
				err error
			)
			if st.add {
				got, err = s.AddSubscriber(ctx, st.chatID)
			} else {
				got, err = s.RemoveSubscriber(ctx, st.chatID)
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(st.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}

			list, err := s.ListSubscribers(ctx)
			if err != nil {
				t.Fatalf("list subscribers: %v", err)
			}
			if diff := cmp.Diff(st.list, list, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRedis(ctx, "127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable redis, got nil")
	}
}
