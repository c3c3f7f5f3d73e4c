package listing

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"listings_dashboard/internal/model"
)

// UnknownType labels listings without a property type.
const UnknownType = "Unknown"

// Overview holds the headline metrics of a listing collection.
type Overview struct {
	Total        int    `json:"total"`
	Owners       int    `json:"owners"`
	Agents       int    `json:"agents"`
	OwnerPercent int    `json:"owner_percent"`
	TopType      string `json:"top_type"`
	TopTypeCount int    `json:"top_type_count"`
}

// Summarize computes the overview metrics. Ties for the top property type go
// to the type seen first.
func Summarize(records []model.Listing) Overview {
	o := Overview{Total: len(records)}

	counts := make(map[string]int)
	var order []string
	for _, l := range records {
		if l.IsOwner {
			o.Owners++
		}
		t := strings.TrimSpace(l.PropertyType)
		if t == "" {
			t = UnknownType
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	o.Agents = o.Total - o.Owners

	if o.Total > 0 {
		o.OwnerPercent = int(math.Round(float64(o.Owners) * 100 / float64(o.Total)))
	}
	for _, t := range order {
		if counts[t] > o.TopTypeCount {
			o.TopType = t
			o.TopTypeCount = counts[t]
		}
	}
	return o
}

// FormatPrice renders a price in Thai baht with thousands separators,
// e.g. ฿1,500,000.
func FormatPrice(price float64) string {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}
	return "฿" + humanize.Comma(int64(math.Round(price)))
}

// AlertLine is the alert log entry announcing a fetched listing.
func AlertLine(l model.Listing) string {
	return "New " + l.ListingType + " " + l.PropertyType + " - " + FormatPrice(l.Price)
}
