package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"shollu-partner/internal/attendance"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/query"
	"shollu-partner/internal/session"
	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

const cameraDenied = "camera_denied"

func statsKey(operatorID int64) string {
	return "stats:" + strconv.FormatInt(operatorID, 10)
}

func (h *Handlers) orchestrator(c *gin.Context) (*attendance.Orchestrator, *session.Session) {
	s := CurrentSession(c)
	return h.Attendance.Get(s.ID, s.User.ID), s
}

// respond answers JSON callers with data and sends page callers back to
// the attendance page.
func respond(c *gin.Context, data any) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, data)
		return
	}
	redirect(c, http.StatusSeeOther, "attendance")
}

func (h *Handlers) attendancePage(c *gin.Context) {
	orch, _ := h.orchestrator(c)
	HTML(c, http.StatusOK, "attendance.html.tmpl", gin.H{
		"Events":        h.Catalog.All(),
		"View":          orch.View(),
		"Scanner":       h.Capture.Name(),
		"AcceptsImages": h.Capture.AcceptsImages(),
		"DismissMS":     h.Config.Attendance.DismissAfter().Milliseconds(),
		"CameraDenied":  qrscan.CameraDeniedMessage,
		"Prayers":       attendance.Prayers,
	})
}

func (h *Handlers) openScanner(c *gin.Context) {
	orch, _ := h.orchestrator(c)
	ev, err := h.Catalog.Lookup(c.PostForm("event_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := orch.OpenScanner(ev.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, orch.View())
}

func (h *Handlers) closeScanner(c *gin.Context) {
	orch, _ := h.orchestrator(c)
	orch.CloseScanner()
	respond(c, orch.View())
}

// readInput collects the typed code and the optional camera frame.
func (h *Handlers) readInput(c *gin.Context) (qrscan.Input, error) {
	in := qrscan.Input{Text: c.PostForm("code")}
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil
		}
		return in, ErrInvalidRequest
	}
	limit := h.Config.Scanner.MaxImageBytes
	if limit > 0 && fh.Size > limit {
		return in, qrscan.ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return in, err
	}
	defer f.Close()
	r := io.Reader(f)
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	if in.Image, err = io.ReadAll(r); err != nil {
		return in, err
	}
	return in, nil
}

// cameraDeniedResponse is the answer to a browser that could not open the
// camera: the message plus a switch to manual entry.
func cameraDeniedResponse(c *gin.Context) bool {
	if c.PostForm("error") != cameraDenied {
		return false
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      false,
		"message":      qrscan.CameraDeniedMessage,
		"manual_entry": true,
	})
	return true
}

func (h *Handlers) scan(c *gin.Context) {
	if cameraDeniedResponse(c) {
		return
	}
	orch, s := h.orchestrator(c)
	in, err := h.readInput(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	res, err := orch.Scan(c.Request.Context(), s.Token, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) searchSurah(c *gin.Context) {
	orch, s := h.orchestrator(c)
	list, err := orch.SearchSurah(c.Request.Context(), s.Token, c.Query("q"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if list == nil {
		list = []shollu.Surah{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

type verseForm struct {
	SurahID int    `form:"surah_id"`
	Verse   string `form:"verse"`
	Date    string `form:"date"`
}

func (h *Handlers) submitVerse(c *gin.Context) {
	var form verseForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	orch, s := h.orchestrator(c)
	err := orch.SubmitVerse(c.Request.Context(), s.Token, attendance.VerseForm{
		SurahID: form.SurahID,
		Verse:   form.Verse,
		Date:    form.Date,
	})
	var verr *attendance.VerseError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"field":   verr.Field,
			"message": verr.Message,
		})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	h.Cache.Invalidate("readings:")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Bacaan berhasil dicatat"})
}

func (h *Handlers) cancelVerse(c *gin.Context) {
	orch, _ := h.orchestrator(c)
	orch.CancelVerse()
	respond(c, orch.View())
}

// attendanceStats serves the statistics panel. A newer request from the
// same session cancels this one, which then answers 409.
func (h *Handlers) attendanceStats(c *gin.Context) {
	s := CurrentSession(c)
	ctx, ticket, finish := h.Views.Begin(c.Request.Context(), s.ID+":stats")
	defer finish()

	raw, err := query.Get(ctx, h.Cache, statsKey(s.User.ID), func(ctx context.Context) (*shollu.AttendanceStats, error) {
		return h.Backend.AttendanceStats(ctx, s.Token)
	})
	if staleErr := h.Views.Check(ticket); staleErr != nil {
		AbortWithError(c, staleErr)
		return
	}
	if err != nil {
		AbortWithHTTPError(c, GetErrorStatus(err), err, attendance.MsgStatsFailed)
		return
	}
	c.JSON(http.StatusOK, attendance.BuildStats(raw, h.now()))
}

// attendanceLive streams successful scans of this operator to the page.
func (h *Handlers) attendanceLive(c *gin.Context) {
	s := CurrentSession(c)
	if err := h.Hub.Serve(c.Writer, c.Request, strconv.FormatInt(s.User.ID, 10)); err != nil {
		// The upgrader has already answered.
		c.Abort()
	}
}
