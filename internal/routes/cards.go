package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"shollu-partner/internal/email"
	"shollu-partner/internal/query"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/status"
	"shollu-partner/internal/utils"

	"github.com/gin-gonic/gin"
)

const printOfficeTemplate = "templates/email/print_office.html.tmpl"

type cardForm struct {
	Quantity int `form:"jumlah_kartu" label:"Jumlah kartu" validate:"required,min=1,max=1000" msg:"Jumlah kartu minimal 1"`
}

// CardRow is a card request with its place in the print pipeline.
type CardRow struct {
	shollu.CardRequest
	Label     string
	Known     bool
	Next      status.Stage
	HasNext   bool
	Printable bool
}

func (h *Handlers) cardRows(items []shollu.CardRequest, filter string) []CardRow {
	rows := make([]CardRow, 0, len(items))
	for _, req := range items {
		row := CardRow{CardRequest: req, Label: req.Status}
		if st, err := h.Pipeline.Parse(req.Status); err == nil {
			row.Known = true
			row.Label = st.Label()
			row.Next, row.HasNext = st.Next()
			row.Printable = st.CanGeneratePDF()
			if filter != "" && st.Code() != filter {
				continue
			}
		} else if filter != "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (h *Handlers) cardPage(ctx context.Context, token string, userID int64, page, limit int) (*shollu.Page[shollu.CardRequest], error) {
	key := fmt.Sprintf("cards:%d:%d:%d", userID, page, limit)
	return query.Get(ctx, h.Cache, key, func(ctx context.Context) (*shollu.Page[shollu.CardRequest], error) {
		return h.Backend.CardRequests(ctx, token, page, limit)
	})
}

func (h *Handlers) renderCardRequest(c *gin.Context, code int, form cardForm, errs FormErrors) {
	s := CurrentSession(c)
	page, limit := pageParams(c)
	data := gin.H{"Form": form, "Errors": errs}
	list, err := h.cardPage(c.Request.Context(), s.Token, s.User.ID, page, limit)
	if err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized {
			AbortWithError(c, err)
			return
		}
		data["Banner"] = errorBanner(GetErrorMessage(err))
	} else {
		data["Requests"] = h.cardRows(list.Items, "")
		data["Pager"] = NewPager(*c.Request.URL, list.Pagination)
	}
	HTML(c, code, "card_request.html.tmpl", data)
}

func (h *Handlers) cardRequestPage(c *gin.Context) {
	h.renderCardRequest(c, http.StatusOK, cardForm{Quantity: 1}, nil)
}

func (h *Handlers) requestCards(c *gin.Context) {
	s := CurrentSession(c)
	var form cardForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderCardRequest(c, http.StatusUnprocessableEntity, form, FormErrors{"Quantity": "Jumlah kartu minimal 1"})
		return
	}
	if errs := validateForm(&form); errs != nil {
		h.renderCardRequest(c, http.StatusUnprocessableEntity, form, errs)
		return
	}
	if _, err := h.Backend.RequestCards(c.Request.Context(), s.Token, form.Quantity); err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized {
			AbortWithError(c, err)
			return
		}
		addFlash(c, flashError, GetErrorMessage(err))
		redirect(c, http.StatusSeeOther, "card-request")
		return
	}
	h.Cache.Invalidate("cards:")
	addFlash(c, flashSuccess, fmt.Sprintf("Permintaan %d kartu berhasil dikirim", form.Quantity))
	redirect(c, http.StatusSeeOther, "card-request")
}

func (h *Handlers) cardPrintRequests(c *gin.Context) {
	s := CurrentSession(c)
	page, limit := pageParams(c)
	filter := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if filter != "" {
		if _, err := h.Pipeline.Parse(filter); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	list, err := h.cardPage(c.Request.Context(), s.Token, s.User.ID, page, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	HTML(c, http.StatusOK, "card_print_requests.html.tmpl", gin.H{
		"Requests":  h.cardRows(list.Items, filter),
		"Stages":    h.Pipeline.Stages(),
		"Filter":    filter,
		"Pager":     NewPager(*c.Request.URL, list.Pagination),
		"CanMail":   h.Config.Email.PrintOffice != "",
		"MailTo":    h.Config.Email.PrintOffice,
		"Pipeline":  h.Pipeline.Name,
		"PageLimit": limit,
	})
}

func cardID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidParameter
	}
	return id, nil
}

// advanceCardStatus moves a request one stage forward. The form carries the
// status the admin saw and, optionally, the stage they clicked.
func (h *Handlers) advanceCardStatus(c *gin.Context) {
	s := CurrentSession(c)
	id, err := cardID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	next, err := h.Pipeline.Advance(c.PostForm("current"), c.PostForm("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := h.Backend.UpdateCardRequestStatus(c.Request.Context(), s.Token, id, next.Code()); err != nil {
		AbortWithError(c, err)
		return
	}
	h.Cache.Invalidate("cards:")
	msg := "Status permintaan diperbarui menjadi " + next.Label()
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "status": next.Code()})
		return
	}
	addFlash(c, flashSuccess, msg)
	redirect(c, http.StatusSeeOther, "card-print-requests")
}

// printablePDF fetches the cards of a request whose status allows printing.
func (h *Handlers) printablePDF(c *gin.Context, current string) (int64, []byte, error) {
	id, err := cardID(c)
	if err != nil {
		return 0, nil, err
	}
	st, err := h.Pipeline.Parse(current)
	if err != nil {
		return id, nil, err
	}
	if !st.CanGeneratePDF() {
		return id, nil, ErrNotPrintable
	}
	pdf, err := h.Backend.GenerateCardPDF(c.Request.Context(), CurrentSession(c).Token, id)
	return id, pdf, err
}

func pdfName(id int64) string {
	return fmt.Sprintf("kartu-%d.pdf", id)
}

func (h *Handlers) cardPDF(c *gin.Context) {
	id, pdf, err := h.printablePDF(c, c.Query("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+pdfName(id)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// mailCardPDF sends the generated cards to the print office.
func (h *Handlers) mailCardPDF(c *gin.Context) {
	to := h.Config.Email.PrintOffice
	if to == "" || h.Mailer == nil {
		AbortWithError(c, ErrMailDisabled)
		return
	}
	id, pdf, err := h.printablePDF(c, c.PostForm("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quantity, _ := strconv.Atoi(c.PostForm("jumlah_kartu"))
	body, err := utils.RenderTemplate(h.Web, printOfficeTemplate, gin.H{
		"ID":         id,
		"Quantity":   quantity,
		"SatgasName": c.PostForm("nama_satgas"),
		"MosqueName": c.PostForm("nama_masjid"),
		"Sender":     CurrentSession(c).User.DisplayName(),
		"Date":       FormatDate(h.now()),
		"Link":       utils.UrlFor(c, link(c, "card-print-requests")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	err = h.Mailer.Send(c.Request.Context(), &email.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Cetak kartu permintaan #%d", id),
		HTML:    body,
		Attachments: []email.Attachment{
			{Name: pdfName(id), ContentType: "application/pdf", Data: pdf},
		},
	})
	if err != nil {
		slog.Error("Failed to mail card PDF", "request", id, "error", err)
		AbortWithHTTPError(c, http.StatusBadGateway, err, "Email ke percetakan gagal dikirim", "MAIL_FAILED")
		return
	}
	msg := "PDF kartu dikirim ke " + to
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
		return
	}
	addFlash(c, flashSuccess, msg)
	redirect(c, http.StatusSeeOther, "card-print-requests")
}
