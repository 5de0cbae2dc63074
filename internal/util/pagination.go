package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PageMeta struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

// Calculate clamps page and size and returns the offset to query from.
func Calculate(page, size int) (from, limit int) {
	page, size = Normalize(page, size)
	return (page - 1) * size, size
}

func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}
