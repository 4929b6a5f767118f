package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shollu-partner/internal/events"
	"shollu-partner/internal/query"
	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

const (
	msgRegistered       = "Pendaftaran berhasil!"
	msgRegistrationFail = "Gagal mendaftar"
)

type satgasForm struct {
	Name     string `form:"name" label:"Nama" validate:"required"`
	Username string `form:"username" label:"Username" validate:"required"`
	Password string `form:"password" label:"Password" validate:"required"`
	Phone    string `form:"phone" label:"Telepon"`
	MosqueID int64  `form:"masjid_id" label:"Masjid" validate:"required" msg:"Pilih masjid terlebih dahulu"`
	EventIDs []int  `form:"id_event" label:"Event" validate:"min=1" msg:"Pilih minimal satu event"`
}

func (f satgasForm) Selected(id int) bool {
	for _, e := range f.EventIDs {
		if e == id {
			return true
		}
	}
	return false
}

// mosquesFor returns the mosques of eventID, shared between visitors for
// the cache lifetime.
func (h *Handlers) mosquesFor(ctx context.Context, eventID int) ([]shollu.Mosque, error) {
	key := "mosques:" + strconv.Itoa(eventID)
	return query.Get(ctx, h.Cache, key, func(ctx context.Context) ([]shollu.Mosque, error) {
		return h.Backend.MosquesByEvent(ctx, eventID)
	})
}

func (h *Handlers) renderRegistration(c *gin.Context, code int, form satgasForm, errs FormErrors, banner Banner) {
	var mosques []shollu.Mosque
	if len(form.EventIDs) > 0 {
		list, err := h.mosquesFor(c.Request.Context(), form.EventIDs[0])
		if err != nil {
			banner = errorBanner(GetErrorMessage(err))
		}
		mosques = list
	}
	HTML(c, code, "register_satgas.html.tmpl", gin.H{
		"Events":  h.Catalog.All(),
		"Mosques": mosques,
		"Form":    form,
		"Errors":  errs,
		"Banner":  banner,
	})
}

func (h *Handlers) registerSatgasPage(c *gin.Context) {
	var form satgasForm
	for _, raw := range c.QueryArray("event_id") {
		if ev, err := h.Catalog.Lookup(raw); err == nil {
			form.EventIDs = append(form.EventIDs, ev.ID)
		}
	}
	h.renderRegistration(c, http.StatusOK, form, nil, Banner{})
}

// mosques serves the dropdown of the registration form. Only the first
// selected event decides the list.
func (h *Handlers) mosques(c *gin.Context) {
	ids := strings.Split(c.Query("event_id"), ",")
	ev, err := h.Catalog.Lookup(ids[0])
	if err != nil {
		AbortWithError(c, err)
		return
	}
	list, err := h.mosquesFor(c.Request.Context(), ev.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if list == nil {
		list = []shollu.Mosque{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

func (h *Handlers) registerSatgas(c *gin.Context) {
	var form satgasForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Username = strings.TrimSpace(form.Username)

	if errs := validateForm(&form); errs != nil {
		h.renderRegistration(c, http.StatusUnprocessableEntity, form, errs, errorBanner(msgRegistrationFail))
		return
	}
	for _, id := range form.EventIDs {
		if _, err := h.Catalog.Get(id); err != nil {
			h.renderRegistration(c, http.StatusUnprocessableEntity, form,
				FormErrors{"EventIDs": GetErrorMessage(events.ErrUnknownEvent)}, errorBanner(msgRegistrationFail))
			return
		}
	}

	_, err := h.Sessions.Register(c.Request.Context(), shollu.SatgasRegistration{
		Name:     form.Name,
		Username: form.Username,
		Password: form.Password,
		Phone:    strings.TrimSpace(form.Phone),
		MosqueID: form.MosqueID,
		EventIDs: form.EventIDs,
	})
	if err != nil {
		msg := shollu.MessageOf(err)
		if msg == "" {
			msg = msgRegistrationFail
		}
		h.renderRegistration(c, http.StatusOK, form, nil, errorBanner(msg))
		return
	}
	h.Cache.Invalidate("satgas:")
	h.renderRegistration(c, http.StatusOK, satgasForm{}, nil, successBanner(msgRegistered))
}
