package routes

import (
	"context"
	"fmt"
	"net/http"

	"shollu-partner/internal/query"
	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

// readingLog lists the Pejuang Quran readings recorded so far.
func (h *Handlers) readingLog(c *gin.Context) {
	s := CurrentSession(c)
	page, limit := pageParams(c)
	key := fmt.Sprintf("readings:%d:%d:%d", s.User.ID, page, limit)
	list, err := query.Get(c.Request.Context(), h.Cache, key, func(ctx context.Context) (*shollu.Page[shollu.ReadingEntry], error) {
		return h.Backend.ReadingLog(ctx, s.Token, page, limit)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	HTML(c, http.StatusOK, "pejuang_quran.html.tmpl", gin.H{
		"Entries": list.Items,
		"Offset":  (list.Pagination.Page - 1) * list.Pagination.Limit,
		"Pager":   NewPager(*c.Request.URL, list.Pagination),
	})
}
