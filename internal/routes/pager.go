package routes

import (
	"net/url"
	"strconv"

	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

// Pager is the "Sebelumnya" / "Berikutnya" control under a table.
type Pager struct {
	Page         int
	TotalPages   int
	Total        int
	PrevDisabled bool
	NextDisabled bool
	PrevURL      string
	NextURL      string
}

// NewPager builds the control for p. The links keep the other query
// parameters of base.
func NewPager(base url.URL, p shollu.Pagination) Pager {
	pager := Pager{
		Page:         p.Page,
		TotalPages:   max(p.TotalPages, 1),
		Total:        p.Total,
		PrevDisabled: !p.HasPrev(),
		NextDisabled: !p.HasNext(),
	}
	at := func(page int) string {
		q := base.Query()
		q.Set("page", strconv.Itoa(page))
		u := base
		u.RawQuery = q.Encode()
		return u.RequestURI()
	}
	if !pager.PrevDisabled {
		pager.PrevURL = at(p.Prev())
	}
	if !pager.NextDisabled {
		pager.NextURL = at(p.Next())
	}
	return pager
}

// pageParams reads page and limit, falling back to page 1 and the default
// limit.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultPageLimit
	}
	return page, limit
}
