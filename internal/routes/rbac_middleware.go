package routes

import (
	"log/slog"
	"net/http"

	"shollu-partner/internal/session"

	"github.com/gin-gonic/gin"
)

// RequirePermission creates middleware that checks for specific permission.
// Pages answer a denied satgas with a redirect to the dashboard.
func (h *Handlers) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if !h.RBAC.Can(string(s.User.Role), resource, action) {
			slog.Warn("Permission denied",
				"user", s.User.Username,
				"role", s.User.Role,
				"resource", resource,
				"action", action)

			if wantsJSON(c) || resource == "dashboard" {
				AbortWithHTTPError(c, http.StatusForbidden, ErrForbidden, GetErrorMessage(ErrForbidden), "FORBIDDEN")
				return
			}
			redirect(c, http.StatusFound, "dashboard")
			return
		}

		c.Next()
	}
}

// NavItem is one entry of the sidebar.
type NavItem struct {
	Title string
	Path  string
	Admin bool
}

var navItems = []struct {
	NavItem
	resource string
}{
	{NavItem{Title: "Dashboard", Path: "dashboard"}, "dashboard"},
	{NavItem{Title: "Absensi", Path: "attendance"}, "attendance"},
	{NavItem{Title: "Pejuang Quran", Path: "pejuang-quran"}, "quran"},
	{NavItem{Title: "Anggota", Path: "members"}, "members"},
	{NavItem{Title: "Registrasi Anggota", Path: "member-registration"}, "members"},
	{NavItem{Title: "Permintaan Kartu", Path: "card-request"}, "cards"},
	{NavItem{Title: "Permintaan Satgas", Path: "satgas-requests", Admin: true}, "satgas_requests"},
	{NavItem{Title: "Cetak Kartu", Path: "card-print-requests", Admin: true}, "card_print"},
	{NavItem{Title: "Pengaturan", Path: "settings"}, "settings"},
}

func (h *Handlers) navFor(role session.Role) []NavItem {
	var out []NavItem
	for _, item := range navItems {
		if h.RBAC.Can(string(role), item.resource, "view") {
			out = append(out, item.NavItem)
		}
	}
	return out
}
