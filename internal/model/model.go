// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"strings"
)

// Listing is a normalized real-estate listing as received from the scraper
// workflow. It is derived on every fetch and never the system of record.
type Listing struct {
	Identifier   int64   `json:"id"`
	Price        float64 `json:"price"`
	IsOwner      bool    `json:"is_owner"`
	ListingType  string  `json:"listing_type,omitempty"`
	PropertyType string  `json:"property_type,omitempty"`
	ProjectName  string  `json:"project_name,omitempty"`
	RawText      string  `json:"raw_text,omitempty"`
	URL          string  `json:"url,omitempty"`
	PostDate     string  `json:"post_date,omitempty"`

	// Fields holds every input field under its trimmed key, unmodified.
	Fields map[string]any `json:"fields,omitempty"`
}

// UnspecifiedProject is the scraper's placeholder for a missing project name.
const UnspecifiedProject = "ไม่ระบุ"

// Title returns the project name, or the listing and property type when the
// project is unknown.
func (l Listing) Title() string {
	if l.ProjectName != "" && l.ProjectName != UnspecifiedProject {
		return l.ProjectName
	}
	return strings.TrimSpace(l.ListingType + " " + l.PropertyType)
}

// SortOption selects the display ordering of the listing collection.
type SortOption string

// Supported sort options.
const (
	SortNewest    SortOption = "newest"
	SortOldest    SortOption = "oldest"
	SortPriceDesc SortOption = "price-desc"
	SortPriceAsc  SortOption = "price-asc"
)

// ParseSortOption converts a query value into a SortOption.
// The dashboard's legacy "row-desc"/"row-asc" values map to the price options.
func ParseSortOption(s string) (SortOption, error) {
	switch s {
	case "", string(SortNewest):
		return SortNewest, nil
	case string(SortOldest):
		return SortOldest, nil
	case string(SortPriceDesc), "row-desc":
		return SortPriceDesc, nil
	case string(SortPriceAsc), "row-asc":
		return SortPriceAsc, nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// Identifiers returns the identifiers of the given listings in order.
func Identifiers(listings []Listing) []int64 {
	ids := make([]int64, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.Identifier)
	}
	return ids
}
