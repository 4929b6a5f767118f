package routes

import (
	"log/slog"
	"net/http"
	"strings"

	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

type settingsForm struct {
	Name     string `form:"name" label:"Nama" validate:"required,max=100"`
	Password string `form:"password" label:"Password baru" validate:"omitempty,min=6"`
	Confirm  string `form:"password_confirmation" label:"Konfirmasi password" validate:"eqfield=Password" msg:"Konfirmasi password tidak cocok"`
}

func (h *Handlers) renderSettings(c *gin.Context, code int, form settingsForm, errs FormErrors, banner Banner) {
	s := CurrentSession(c)
	profile, err := h.Backend.Profile(c.Request.Context(), s.Token)
	if err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized {
			AbortWithError(c, err)
			return
		}
		slog.Warn("Failed to load profile", "error", err)
		profile = &shollu.Profile{
			ID:       shollu.ID(s.User.ID),
			Username: s.User.Username,
			Name:     s.User.Name,
			Role:     string(s.User.Role),
			MosqueID: shollu.ID(s.User.MosqueID),
		}
		if banner.Message == "" {
			banner = errorBanner(GetErrorMessage(err))
		}
	}
	if form.Name == "" && errs == nil {
		form.Name = profile.Name
	}
	HTML(c, code, "settings.html.tmpl", gin.H{
		"Profile": profile,
		"Form":    form,
		"Errors":  errs,
		"Banner":  banner,
	})
}

func (h *Handlers) settingsPage(c *gin.Context) {
	h.renderSettings(c, http.StatusOK, settingsForm{}, nil, Banner{})
}

func (h *Handlers) updateSettings(c *gin.Context) {
	s := CurrentSession(c)
	var form settingsForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	form.Name = strings.TrimSpace(form.Name)

	if errs := validateForm(&form); errs != nil {
		form.Password, form.Confirm = "", ""
		h.renderSettings(c, http.StatusUnprocessableEntity, form, errs, Banner{})
		return
	}
	if _, err := h.Backend.UpdateProfile(c.Request.Context(), s.Token, form.Name, form.Password); err != nil {
		if GetErrorStatus(err) == http.StatusUnauthorized {
			AbortWithError(c, err)
			return
		}
		form.Password, form.Confirm = "", ""
		h.renderSettings(c, http.StatusOK, form, nil, errorBanner(GetErrorMessage(err)))
		return
	}
	if err := h.Sessions.Rename(c.Request.Context(), s.ID, form.Name); err != nil {
		slog.Warn("Failed to rename session", "session", s.ID, "error", err)
	}
	addFlash(c, flashSuccess, "Profil berhasil diperbarui")
	redirect(c, http.StatusSeeOther, "settings")
}
