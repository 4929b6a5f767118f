package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Greeting picks the Indonesian greeting for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return "Selamat pagi"
	case h >= 11 && h < 15:
		return "Selamat siang"
	case h >= 15 && h < 18:
		return "Selamat sore"
	default:
		return "Selamat malam"
	}
}

var (
	dayNames   = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
)

// FormatDate renders t as e.g. "Senin, 20 Januari 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d", dayNames[t.Weekday()], t.Day(), monthNames[t.Month()-1], t.Year())
}

func (h *Handlers) dashboard(c *gin.Context) {
	s := CurrentSession(c)
	now := h.now()
	HTML(c, http.StatusOK, "dashboard.html.tmpl", gin.H{
		"Greeting": Greeting(now),
		"Date":     FormatDate(now),
		"Name":     s.User.DisplayName(),
		"IsAdmin":  s.User.IsAdmin(),
		"Events":   h.Catalog.All(),
	})
}
