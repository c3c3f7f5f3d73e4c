package bot

import (
	"fmt"
	"strings"
	"time"

	"listings_dashboard/internal/listing"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/novelty"
)

const (
	labelOwner = "owner"
	labelAgent = "agent"
)

// FormatListing formats a single listing as a short text block.
func FormatListing(l model.Listing) string {
	var b strings.Builder
	who := labelAgent
	if l.IsOwner {
		who = labelOwner
	}
	fmt.Fprintf(&b, "#%d %s\n", l.Identifier, l.Title())
	fmt.Fprintf(&b, "%s %s · %s · %s", l.ListingType, l.PropertyType, listing.FormatPrice(l.Price), who)
	if l.PostDate != "" {
		fmt.Fprintf(&b, "\nPosted: %s", l.PostDate)
	}
	if l.URL != "" {
		fmt.Fprintf(&b, "\n%s", l.URL)
	}
	return b.String()
}

// FormatNewItems formats the current novelty result.
func FormatNewItems(res novelty.Result) string {
	if res.Count() == 0 {
		return "No new listings."
	}
	if len(res.Items) == 0 {
		var b strings.Builder
		b.WriteString("No new listings. Recent alerts:\n")
		for _, m := range res.Messages {
			fmt.Fprintf(&b, "\n• %s", m)
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d new listing(s):\n", len(res.Items))
	for _, l := range res.Items {
		b.WriteString("\n")
		b.WriteString(FormatListing(l))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPage formats one page of the listing collection.
func FormatPage(p listing.Page, sort model.SortOption) string {
	if p.Total == 0 {
		return "No listings yet."
	}
	if len(p.Items) == 0 {
		return fmt.Sprintf("Page %d is empty. There are %d page(s).", p.Number, p.TotalPages)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Page %d/%d (%d listings, %s):\n", p.Number, p.TotalPages, p.Total, sort)
	for _, l := range p.Items {
		b.WriteString("\n")
		b.WriteString(FormatListing(l))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatOverview formats the collection metrics.
func FormatOverview(o listing.Overview, fetchedAt *time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listings: %d\n", o.Total)
	fmt.Fprintf(&b, "Owners: %d (%d%%)\n", o.Owners, o.OwnerPercent)
	fmt.Fprintf(&b, "Agents: %d\n", o.Agents)
	if o.TopType != "" {
		fmt.Fprintf(&b, "Top type: %s (%d)\n", o.TopType, o.TopTypeCount)
	}
	if fetchedAt != nil {
		fmt.Fprintf(&b, "Last refresh: %s\n", fetchedAt.UTC().Format("2006-01-02 15:04 UTC"))
	} else {
		b.WriteString("Last refresh: never\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
