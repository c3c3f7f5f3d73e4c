package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"listings_dashboard/internal/listing"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/novelty"
)

func TestParsePageArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "valid", input: "3", want: 3},
		{name: "extra words", input: "2 please", want: 2},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not a number", input: "next", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageArg(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageArg(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePageArg() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "1034", want: []int64{1034}},
		{name: "spaces", input: "1034 1035", want: []int64{1034, 1035}},
		{name: "commas", input: "1034,1035, 14", want: []int64{1034, 1035, 14}},
		{name: "hash prefix", input: "#12", want: []int64{12}},
		{name: "empty", input: " ", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "garbage", input: "12 abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIDList(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseIDList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatListing(t *testing.T) {
	tests := []struct {
		name string
		l    model.Listing
		want string
	}{
		{
			name: "full",
			l: model.Listing{
				Identifier: 1034, ListingType: "Sale", PropertyType: "Condo", ProjectName: "Noble Ploenchit",
				Price: 8500000, IsOwner: true, PostDate: "2025-03-02", URL: "https://fb.example/1034",
			},
			want: "#1034 Noble Ploenchit\nSale Condo · ฿8,500,000 · owner\nPosted: 2025-03-02\nhttps://fb.example/1034",
		},
		{
			name: "unspecified project",
			l:    model.Listing{Identifier: 7, ListingType: "Rent", PropertyType: "House", ProjectName: model.UnspecifiedProject, Price: 45000},
			want: "#7 Rent House\nRent House · ฿45,000 · agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatListing(tt.l)); diff != "" {
				t.Errorf("FormatListing() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatNewItems(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if diff := cmp.Diff("No new listings.", FormatNewItems(novelty.Result{})); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fallback messages", func(t *testing.T) {
		got := FormatNewItems(novelty.Result{Messages: []string{"CONNECTION ERROR: Could not fetch listing data."}})
		want := "No new listings. Recent alerts:\n\n• CONNECTION ERROR: Could not fetch listing data."
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("items", func(t *testing.T) {
		got := FormatNewItems(novelty.Result{Items: []model.Listing{
			{Identifier: 2, ListingType: "Sale", PropertyType: "Land"},
			{Identifier: 1, ListingType: "Rent", PropertyType: "Condo"},
		}})
		if !strings.HasPrefix(got, "2 new listing(s):\n\n#2 Sale Land") {
			t.Errorf("unexpected header: %q", got)
		}
		if !strings.Contains(got, "#1 Rent Condo") {
			t.Errorf("missing second listing: %q", got)
		}
		if strings.HasSuffix(got, "\n") {
			t.Errorf("trailing newline in %q", got)
		}
	})
}

func TestFormatPage(t *testing.T) {
	records := []model.Listing{
		{Identifier: 3, ListingType: "Sale", PropertyType: "Condo"},
		{Identifier: 2, ListingType: "Sale", PropertyType: "Land"},
		{Identifier: 1, ListingType: "Rent", PropertyType: "House"},
	}

	tests := []struct {
		name       string
		page       listing.Page
		wantPrefix string
	}{
		{name: "no listings", page: listing.Paginate(nil, 1, 2), wantPrefix: "No listings yet."},
		{name: "first page", page: listing.Paginate(records, 1, 2), wantPrefix: "Page 1/2 (3 listings, newest):\n\n#3 Sale Condo"},
		{name: "past the end", page: listing.Paginate(records, 5, 2), wantPrefix: "Page 5 is empty. There are 2 page(s)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPage(tt.page, model.SortNewest)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("FormatPage() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestFormatOverview(t *testing.T) {
	at := time.Date(2025, 3, 2, 9, 15, 0, 0, time.UTC)
	o := listing.Overview{Total: 4, Owners: 1, Agents: 3, OwnerPercent: 25, TopType: "Condo", TopTypeCount: 2}

	want := "Listings: 4\nOwners: 1 (25%)\nAgents: 3\nTop type: Condo (2)\nLast refresh: 2025-03-02 09:15 UTC"
	if diff := cmp.Diff(want, FormatOverview(o, &at)); diff != "" {
		t.Errorf("FormatOverview() mismatch (-want +got):\n%s", diff)
	}

	if got := FormatOverview(listing.Overview{}, nil); !strings.HasSuffix(got, "Last refresh: never") {
		t.Errorf("expected never refreshed, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ก", telegramMaxMessage+10)
	if diff := cmp.Diff(telegramMaxMessage, len([]rune(truncate(long)))); diff != "" {
		t.Errorf("truncated length mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("short", truncate("short")); diff != "" {
		t.Errorf("short text changed (-want +got):\n%s", diff)
	}
}
