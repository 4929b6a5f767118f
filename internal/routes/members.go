package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"shollu-partner/internal/events"
	"shollu-partner/internal/export"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/query"
	"shollu-partner/internal/session"
	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

const exportPageLimit = 100

// memberQuery reads the filters of the members table. A satgas only ever
// sees their own members.
func (h *Handlers) memberQuery(c *gin.Context, s *session.Session) (shollu.MemberQuery, events.Event, error) {
	var ev events.Event
	var err error
	if raw := c.Query("event_id"); raw != "" {
		ev, err = h.Catalog.Lookup(raw)
	} else if all := h.Catalog.All(); len(all) > 0 {
		ev = all[0]
	} else {
		err = events.ErrUnknownEvent
	}
	if err != nil {
		return shollu.MemberQuery{}, ev, err
	}

	page, limit := pageParams(c)
	mq := shollu.MemberQuery{
		EventID: ev.ID,
		Page:    page,
		Limit:   limit,
		Search:  strings.TrimSpace(c.Query("search")),
	}
	switch g := c.Query("gender"); g {
	case "L", "P":
		mq.Gender = g
	}
	if s.User.IsAdmin() {
		mq.SatgasID, _ = strconv.ParseInt(c.Query("satgas_id"), 10, 64)
	} else {
		mq.SatgasID = s.User.ID
	}
	return mq, ev, nil
}

func memberKey(s *session.Session, mq shollu.MemberQuery) string {
	return fmt.Sprintf("members:%d:%d:%d:%d:%d:%s:%s", s.User.ID, mq.EventID, mq.SatgasID, mq.Page, mq.Limit, mq.Gender, mq.Search)
}

func (h *Handlers) members(c *gin.Context) {
	s := CurrentSession(c)
	mq, ev, err := h.memberQuery(c, s)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	page, err := query.Get(c.Request.Context(), h.Cache, memberKey(s, mq), func(ctx context.Context) (*shollu.Page[shollu.Member], error) {
		return h.Backend.Members(ctx, s.Token, mq)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	HTML(c, http.StatusOK, "members.html.tmpl", gin.H{
		"Events":  h.Catalog.All(),
		"Event":   ev,
		"Query":   mq,
		"Members": page.Items,
		"Offset":  (page.Pagination.Page - 1) * page.Pagination.Limit,
		"Pager":   NewPager(*c.Request.URL, page.Pagination),
	})
}

// exportMembers writes every page matching the filters as one file.
func (h *Handlers) exportMembers(c *gin.Context) {
	s := CurrentSession(c)
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		AbortWithHTTPError(c, http.StatusBadRequest, ErrInvalidParameter, "Format ekspor tidak didukung", "INVALID_FORMAT")
		return
	}
	mq, ev, err := h.memberQuery(c, s)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var all []shollu.Member
	mq.Page, mq.Limit = 1, exportPageLimit
	for {
		page, err := h.Backend.Members(c.Request.Context(), s.Token, mq)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		all = append(all, page.Items...)
		if !page.Pagination.HasNext() || len(page.Items) == 0 {
			break
		}
		mq.Page++
	}

	filename := fmt.Sprintf("anggota-%d.%s", ev.ID, format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, all); err != nil {
		slog.Error("Member export failed", "error", err, "format", format)
	}
}

type participantForm struct {
	QRCode    string `form:"qr_code" label:"QR Code" validate:"required" msg:"Pindai kartu terlebih dahulu"`
	Name      string `form:"fullname" label:"Nama lengkap" validate:"required"`
	Phone     string `form:"phone" label:"Telepon"`
	Gender    string `form:"gender" label:"Jenis kelamin" validate:"required,oneof=L P" msg:"Pilih jenis kelamin"`
	BirthDate string `form:"tanggal_lahir" label:"Tanggal lahir" validate:"omitempty,datetime=2006-01-02"`
	EventID   int    `form:"event_id" label:"Event" validate:"required" msg:"Pilih event"`
	HideName  bool   `form:"hide_name"`
}

func (h *Handlers) renderMemberRegistration(c *gin.Context, code int, form participantForm, errs FormErrors, banner Banner) {
	HTML(c, code, "member_registration.html.tmpl", gin.H{
		"Events":        h.Catalog.All(),
		"Form":          form,
		"Errors":        errs,
		"Banner":        banner,
		"AcceptsImages": h.Capture.AcceptsImages(),
		"CameraDenied":  qrscan.CameraDeniedMessage,
	})
}

func (h *Handlers) memberRegistrationPage(c *gin.Context) {
	form := participantForm{QRCode: strings.TrimSpace(c.Query("qr_code"))}
	if all := h.Catalog.All(); len(all) > 0 {
		form.EventID = all[0].ID
	}
	h.renderMemberRegistration(c, http.StatusOK, form, nil, Banner{})
}

func (h *Handlers) registerMember(c *gin.Context) {
	s := CurrentSession(c)
	var form participantForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	form.QRCode = strings.TrimSpace(form.QRCode)
	form.Name = strings.TrimSpace(form.Name)

	if errs := validateForm(&form); errs != nil {
		h.renderMemberRegistration(c, http.StatusUnprocessableEntity, form, errs, Banner{})
		return
	}
	if _, err := h.Catalog.Get(form.EventID); err != nil {
		h.renderMemberRegistration(c, http.StatusUnprocessableEntity, form,
			FormErrors{"EventID": GetErrorMessage(err)}, Banner{})
		return
	}

	_, err := h.Backend.RegisterParticipant(c.Request.Context(), s.Token, shollu.ParticipantRegistration{
		QRCode:    form.QRCode,
		Name:      form.Name,
		Phone:     strings.TrimSpace(form.Phone),
		Gender:    form.Gender,
		BirthDate: form.BirthDate,
		EventID:   form.EventID,
		MosqueID:  s.User.MosqueID,
		SatgasID:  s.User.ID,
		HideName:  form.HideName,
	})
	if err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized {
			AbortWithError(c, err)
			return
		}
		h.renderMemberRegistration(c, http.StatusOK, form, nil, errorBanner(GetErrorMessage(err)))
		return
	}
	h.Cache.Invalidate("members:")
	addFlash(c, flashSuccess, "Peserta "+form.Name+" berhasil didaftarkan")
	redirect(c, http.StatusSeeOther, "member-registration")
}

// decodeQR is the one-shot scan of the member registration form.
func (h *Handlers) decodeQR(c *gin.Context) {
	if cameraDeniedResponse(c) {
		return
	}
	in, err := h.readInput(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	code, err := h.Capture.Decode(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "code": code})
}

// qrImage renders a card code as PNG.
func (h *Handlers) qrImage(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		AbortWithError(c, ErrInvalidParameter)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	if size > 2048 {
		size = 2048
	}
	png, err := qrscan.EncodePNG(code, size)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
