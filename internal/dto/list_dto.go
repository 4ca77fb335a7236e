package dto

// ─── Filter / Pagination ─────────────────────────────────────────────────────

// Sort keys accepted by every listing.
const (
	SortVendorAsc  = "A-Z"
	SortVendorDesc = "Z-A"
	SortQtyAsc     = "1"
	SortQtyDesc    = "-1"
)

// ListFilter is shared by all company-scoped listings. Article is a
// vendor-code substring.
type ListFilter struct {
	Article  string `form:"article"`
	Sort     string `form:"sort"      validate:"omitempty,oneof=A-Z Z-A 1 -1"`
	Page     int    `form:"page,default=1"       validate:"min=1"`
	PageSize int    `form:"page_size,default=50" validate:"min=1,max=500"`
}

// Normalize clamps paging to sane values.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 500 {
		f.PageSize = 50
	}
}

// Offset is the row offset of the requested page.
func (f ListFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// Page is the envelope of every listing response.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage builds the envelope for one page of results.
func NewPage[T any](data []T, total int64, f ListFilter) Page[T] {
	pages := 0
	if f.PageSize > 0 {
		pages = int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	}
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Total: total, Page: f.Page, PageSize: f.PageSize, TotalPages: pages}
}
