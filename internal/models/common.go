package models

// Pagination selects one page of a listing. Page is 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// DefaultPagination returns the first page of 50.
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 50}
}

// Offset calculates the SQL offset for the current page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the page size clamped to [1, 200].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize < 1:
		return 50
	case p.PageSize > 200:
		return 200
	default:
		return p.PageSize
	}
}

// TotalPages calculates the number of pages needed for total rows.
func (p Pagination) TotalPages(total int) int {
	limit := p.Limit()
	pages := (total + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}

// IngredientFilter narrows an ingredient listing.
type IngredientFilter struct {
	// NameContains matches case-insensitively anywhere in the name.
	NameContains string
	Supplier     string
}

// IngredientList is one page of ingredients.
type IngredientList struct {
	Ingredients []*Ingredient
	Total       int
	Page        int
	PageSize    int
}
