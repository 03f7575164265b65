package pagination

import "strings"

const (
	// DefaultSize is the storefront page size when none is provided.
	DefaultSize = 12
	// MaxSize caps how many rows any list query can request.
	MaxSize = 100
)

// Params holds page/offset pagination inputs from controllers or services.
type Params struct {
	Page int
	Size int
	Sort string
}

// Page wraps one page of results together with the total row count.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes the derived page metadata from the raw query results.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	size := NormalizeSize(params.Size)
	pages := int(total) / size
	if int(total)%size != 0 {
		pages++
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       NormalizePage(params.Page),
		Size:       size,
		TotalItems: total,
		TotalPages: pages,
	}
}

// NormalizePage clamps the zero-based page index to a sane value.
func NormalizePage(page int) int {
	if page < 0 {
		return 0
	}
	return page
}

// NormalizeSize enforces the configured default and maximum page sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Offset returns the row offset for the normalized page/size pair.
func (p Params) Offset() int {
	return NormalizePage(p.Page) * NormalizeSize(p.Size)
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return NormalizeSize(p.Size)
}

var sortColumns = map[string]string{
	"name":    "name",
	"price":   "price",
	"created": "created_at",
	"updated": "updated_at",
}

// OrderClause maps the public sort key onto a SQL ORDER BY clause. Unknown
// keys fall back to created-descending rather than erroring.
func OrderClause(sort string) string {
	key := strings.ToLower(strings.TrimSpace(sort))
	dir := "DESC"
	if dot := strings.IndexAny(key, ":,"); dot >= 0 {
		switch strings.TrimSpace(key[dot+1:]) {
		case "asc":
			dir = "ASC"
		case "desc":
			dir = "DESC"
		}
		key = strings.TrimSpace(key[:dot])
	}
	column, ok := sortColumns[key]
	if !ok {
		return "created_at DESC"
	}
	return column + " " + dir
}
