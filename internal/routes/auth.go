package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"shollu-partner/internal/session"

	"github.com/gin-gonic/gin"
)

const msgLoginFailed = "Login gagal. Periksa username dan password."

type loginForm struct {
	Username string `form:"username" label:"Username" validate:"required"`
	Password string `form:"password" label:"Password" validate:"required"`
	Next     string `form:"next"`
}

func (h *Handlers) loginPage(c *gin.Context) {
	if CurrentSession(c) != nil {
		redirect(c, http.StatusFound, "dashboard")
		return
	}
	HTML(c, http.StatusOK, "login.html.tmpl", gin.H{
		"Next": safeNext(c.Query("next")),
	})
}

func (h *Handlers) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	form.Next = safeNext(form.Next)

	render := func(code int, banner Banner, errs FormErrors) {
		HTML(c, code, "login.html.tmpl", gin.H{
			"Form":    form,
			"Errors":  errs,
			"Banner":  banner,
			"Next":    form.Next,
			"Flashes": []Banner{},
		})
	}

	if errs := validateForm(&form); errs != nil {
		render(http.StatusUnprocessableEntity, Banner{}, errs)
		return
	}

	s, err := h.Sessions.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		var loginErr *session.LoginError
		if errors.As(err, &loginErr) {
			msg := loginErr.Message
			if msg == "" {
				msg = msgLoginFailed
			}
			render(http.StatusUnauthorized, errorBanner(msg), nil)
			return
		}
		slog.Error("Login failed", "error", err)
		render(GetErrorStatus(err), errorBanner(GetErrorMessage(err)), nil)
		return
	}

	token, err := h.Signer.Issue(s.ID, string(s.User.Role))
	if err != nil {
		_ = h.Sessions.Logout(c.Request.Context(), s.ID)
		AbortWithError(c, err)
		return
	}
	h.setAuthCookie(c, token)

	if form.Next != "" {
		c.Redirect(http.StatusSeeOther, form.Next)
		return
	}
	redirect(c, http.StatusSeeOther, "dashboard")
}

func (h *Handlers) logout(c *gin.Context) {
	if s := CurrentSession(c); s != nil {
		if err := h.Sessions.Logout(c.Request.Context(), s.ID); err != nil {
			slog.Warn("Logout: failed to delete session", "session", s.ID, "error", err)
		}
	}
	clearAuthCookie(c)
	redirect(c, http.StatusSeeOther, "login")
}
