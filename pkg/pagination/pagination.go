package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Bounds sets the default and maximum page size for one listing.
type Bounds struct {
	Default int
	Max     int
}

var (
	// Alerts caps the notification feed.
	Alerts = Bounds{Default: 50, Max: 50}
	// Clients bounds the all-clients listing.
	Clients = Bounds{Default: 500, Max: 500}
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit and offset query parameters, clamped to b.
func FromContext(c echo.Context, b Bounds) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = b.Default
	}
	if limit > b.Max {
		limit = b.Max
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Window returns the slice bounds of the page within n items.
func (p Params) Window(n int) (start, end int) {
	start = p.Offset
	if start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
