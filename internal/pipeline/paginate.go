package pipeline

import (
	"tarifario/internal"
	"tarifario/internal/config"
)

// Paginate slices items into the requested 1-based page. Out-of-range pages are empty.
func Paginate(items []internal.FeeRecord, pageSize, pageNumber int) internal.Page {
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	total := (len(items) + pageSize - 1) / pageSize

	page := internal.Page{
		Items:      []internal.FeeRecord{},
		PageNumber: pageNumber,
		TotalPages: total,
		TotalItems: len(items),
	}
	if pageNumber < 1 || pageNumber > total {
		return page
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	page.Items = items[start:end]
	return page
}
