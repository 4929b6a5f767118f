package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"shollu-partner/internal/query"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/status"

	"github.com/gin-gonic/gin"
)

// SatgasRow is one application in the admin table.
type SatgasRow struct {
	shollu.SatgasApplication
	Status status.SatgasStatus
	Events string
}

func (h *Handlers) satgasRequests(c *gin.Context) {
	s := CurrentSession(c)
	page, limit := pageParams(c)
	key := fmt.Sprintf("satgas:%d:%d", page, limit)
	list, err := query.Get(c.Request.Context(), h.Cache, key, func(ctx context.Context) (*shollu.SatgasPage, error) {
		return h.Backend.PendingSatgas(ctx, s.Token, page, limit)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows := make([]SatgasRow, 0, len(list.Items))
	for _, app := range list.Items {
		rows = append(rows, SatgasRow{
			SatgasApplication: app,
			Status:            status.ParseSatgas(app.Status),
			Events:            h.Catalog.Labels(app.EventIDs),
		})
	}
	HTML(c, http.StatusOK, "satgas_requests.html.tmpl", gin.H{
		"Summary":  list.Summary,
		"Requests": rows,
		"Pager":    NewPager(*c.Request.URL, list.Pagination),
	})
}

func satgasID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidParameter
	}
	return id, nil
}

// decided reports the outcome of an approve or reject click.
func (h *Handlers) decided(c *gin.Context, err error, msg string) {
	if err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized || wantsJSON(c) {
			AbortWithError(c, err)
			return
		}
		addFlash(c, flashError, GetErrorMessage(err))
		redirect(c, http.StatusSeeOther, "satgas-requests")
		return
	}
	h.Cache.Invalidate("satgas:")
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
		return
	}
	addFlash(c, flashSuccess, msg)
	redirect(c, http.StatusSeeOther, "satgas-requests")
}

// approveSatgas sends back the events chosen at registration, carried as
// hidden id_event fields.
func (h *Handlers) approveSatgas(c *gin.Context) {
	id, err := satgasID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var eventIDs []int
	for _, raw := range c.PostFormArray("id_event") {
		ev, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		eventIDs = append(eventIDs, ev)
	}
	_, err = h.Backend.ApproveSatgas(c.Request.Context(), CurrentSession(c).Token, id, eventIDs)
	h.decided(c, err, "Satgas berhasil disetujui")
}

func (h *Handlers) rejectSatgas(c *gin.Context) {
	id, err := satgasID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	_, err = h.Backend.RejectSatgas(c.Request.Context(), CurrentSession(c).Token, id)
	h.decided(c, err, "Permintaan satgas ditolak")
}
