package listing

import "listings_dashboard/internal/model"

// Page is one window of an ordered listing collection.
type Page struct {
	Items      []model.Listing `json:"items"`
	Number     int             `json:"page"`
	Size       int             `json:"size"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
}

// Paginate returns the 1-based page of records. Page numbers below 1 are
// treated as 1 and a page past the end is empty.
func Paginate(records []model.Listing, page, size int) Page {
	if page < 1 {
		page = 1
	}
	p := Page{
		Items:      []model.Listing{},
		Number:     page,
		Size:       size,
		TotalPages: 1,
		Total:      len(records),
	}
	if size <= 0 {
		return p
	}

	if pages := (len(records) + size - 1) / size; pages > 1 {
		p.TotalPages = pages
	}

	if page-1 >= p.TotalPages {
		return p
	}
	start := (page - 1) * size
	end := min(start+size, len(records))
	p.Items = append(p.Items, records[start:end]...)
	return p
}
