package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"listings_dashboard/internal/model"
)

func TestArchivable(t *testing.T) {
	records := []model.Listing{
		{Identifier: 5, ProjectName: "first"},
		{Identifier: 0},
		{Identifier: 7},
		{Identifier: 5, ProjectName: "duplicate"},
		{Identifier: -2},
	}

	got := archivable(records)
	if diff := cmp.Diff([]int64{5, 7}, model.Identifiers(got)); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("first", got[0].ProjectName); diff != "" {
		t.Errorf("expected first occurrence to win (-want +got):\n%s", diff)
	}
}

func TestUpsertQuery(t *testing.T) {
	at := time.Date(2025, 3, 2, 16, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	batch := []model.Listing{
		{Identifier: 1034, ListingType: "Sale", PropertyType: "Condo", ProjectName: "Noble Ploenchit", Price: 8500000, IsOwner: true, URL: "https://fb.example/1034", PostDate: "2025-03-02"},
		{Identifier: 1035, ListingType: "Rent", PropertyType: "House", Price: 45000},
	}

	query, args := upsertQuery(batch, at)

	for _, want := range []string{
		"($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)",
		"($11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20)",
		"ON CONFLICT (identifier) DO UPDATE SET",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
	if strings.Contains(query, "first_seen_at = EXCLUDED") {
		t.Error("first_seen_at must not be overwritten on conflict")
	}

	if diff := cmp.Diff(20, len(args)); diff != "" {
		t.Fatalf("arg count mismatch (-want +got):\n%s", diff)
	}
	wantFirst := []any{int64(1034), "Sale", "Condo", "Noble Ploenchit", float64(8500000), true, "https://fb.example/1034", "2025-03-02", "", at.UTC()}
	if diff := cmp.Diff(wantFirst, args[:10]); diff != "" {
		t.Errorf("first row args mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPostgresCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPostgres(ctx, "postgres://dashboard@127.0.0.1:1/archive?sslmode=disable&connect_timeout=1", zap.NewNop())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
