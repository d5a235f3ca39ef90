package services

// Page - requested slice of a listing. Zero values pick the defaults.
type Page struct {
	Page    int
	PerPage int
}

// Paginator clamps page requests to the configured sizes.
type Paginator struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPaginator matches the stock configuration.
var DefaultPaginator = Paginator{DefaultPageSize: 10, MaxPageSize: 100}

// Normalize fills and clamps pg. A zero Paginator behaves as DefaultPaginator.
func (p Paginator) Normalize(pg Page) Page {
	if p.MaxPageSize <= 0 {
		p = DefaultPaginator
	}
	if pg.Page < 1 {
		pg.Page = 1
	}
	if pg.PerPage < 1 {
		pg.PerPage = p.DefaultPageSize
	}
	if pg.PerPage > p.MaxPageSize {
		pg.PerPage = p.MaxPageSize
	}
	return pg
}

func (pg Page) Offset() int {
	return (pg.Page - 1) * pg.PerPage
}

// Pages returns the page count for total items.
func (pg Page) Pages(total int64) int64 {
	if pg.PerPage <= 0 {
		return 0
	}
	return (total + int64(pg.PerPage) - 1) / int64(pg.PerPage)
}
