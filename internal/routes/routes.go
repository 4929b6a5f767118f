package routes

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"shollu-partner/internal/access"
	"shollu-partner/internal/attendance"
	"shollu-partner/internal/config"
	"shollu-partner/internal/email"
	"shollu-partner/internal/events"
	"shollu-partner/internal/jwt"
	"shollu-partner/internal/live"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/query"
	"shollu-partner/internal/session"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/status"
	"shollu-partner/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const defaultPageLimit = 10

// Handlers carries what every route needs. Nothing here is global; the
// server builds one value and registers its methods.
type Handlers struct {
	Config     *config.Config
	Backend    *shollu.Client
	Sessions   *session.Manager
	Signer     *jwt.Signer
	Catalog    *events.Catalog
	RBAC       *access.RBAC
	Attendance *attendance.Registry
	Hub        *live.Hub
	Cache      *query.Cache
	Views      *query.Generations
	Pipeline   *status.Pipeline
	Mailer     *email.Client
	Capture    qrscan.Capture
	// Web holds templates/ and assets/.
	Web fs.FS
	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Register installs middleware and every route on r.
func (h *Handlers) Register(r *gin.Engine) error {
	render, err := Templates(h.Web)
	if err != nil {
		return err
	}
	r.HTMLRender = render

	assets, err := fs.Sub(h.Web, "assets")
	if err != nil {
		return err
	}
	r.StaticFS("/assets", http.FS(assets))

	flashStore := cookie.NewStore([]byte(h.Config.Secret))
	flashStore.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})

	r.Use(
		h.baseURL,
		ErrorHandler(),
		sessions.Sessions(FLASH_COOKIE_NAME, flashStore),
		h.SessionMiddleware(),
	)

	r.GET("/health", h.health)
	r.GET("/manifest.webmanifest", h.manifest)

	r.GET("/", func(c *gin.Context) {
		if CurrentSession(c) != nil {
			redirect(c, http.StatusFound, "dashboard")
			return
		}
		redirect(c, http.StatusFound, "login")
	})

	// Public pages
	r.GET("/login", h.loginPage)
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)
	r.GET("/register-satgas", h.registerSatgasPage)
	r.POST("/register-satgas", h.registerSatgas)
	r.GET("/api/mosques", h.mosques)

	auth := r.Group("/", RequireAuth())
	auth.GET("/dashboard", h.RequirePermission("dashboard", "view"), h.dashboard)

	att := auth.Group("/attendance", h.RequirePermission("attendance", "view"))
	att.GET("", h.attendancePage)
	att.GET("/stats", h.attendanceStats)
	att.GET("/live", h.attendanceLive)
	att.POST("/open", h.RequirePermission("attendance", "submit"), h.openScanner)
	att.POST("/close", h.RequirePermission("attendance", "submit"), h.closeScanner)
	att.POST("/scan", h.RequirePermission("attendance", "submit"), h.scan)
	att.GET("/surah", h.RequirePermission("quran", "log"), h.searchSurah)
	att.POST("/verse", h.RequirePermission("quran", "log"), h.submitVerse)
	att.POST("/verse/cancel", h.RequirePermission("quran", "log"), h.cancelVerse)

	auth.POST("/qr/decode", h.RequirePermission("members", "create"), h.decodeQR)
	auth.GET("/qr/:code", h.RequirePermission("members", "view"), h.qrImage)

	members := auth.Group("/members", h.RequirePermission("members", "view"))
	members.GET("", h.members)
	members.GET("/export", h.RequirePermission("members", "export"), h.exportMembers)

	auth.GET("/member-registration", h.RequirePermission("members", "create"), h.memberRegistrationPage)
	auth.POST("/member-registration", h.RequirePermission("members", "create"), h.registerMember)

	auth.GET("/card-request", h.RequirePermission("cards", "view"), h.cardRequestPage)
	auth.POST("/card-request", h.RequirePermission("cards", "request"), h.requestCards)

	auth.GET("/pejuang-quran", h.RequirePermission("quran", "view"), h.readingLog)

	auth.GET("/settings", h.RequirePermission("settings", "view"), h.settingsPage)
	auth.POST("/settings", h.RequirePermission("settings", "update"), h.updateSettings)

	// Admin pages
	satgas := auth.Group("/satgas-requests", h.RequirePermission("satgas_requests", "view"))
	satgas.GET("", h.satgasRequests)
	satgas.POST("/:id/approve", h.RequirePermission("satgas_requests", "approve"), h.approveSatgas)
	satgas.POST("/:id/reject", h.RequirePermission("satgas_requests", "reject"), h.rejectSatgas)

	prints := auth.Group("/card-print-requests", h.RequirePermission("card_print", "view"))
	prints.GET("", h.cardPrintRequests)
	prints.POST("/:id/status", h.RequirePermission("card_print", "update"), h.advanceCardStatus)
	prints.GET("/:id/pdf", h.RequirePermission("card_print", "pdf"), h.cardPDF)
	prints.POST("/:id/mail", h.RequirePermission("card_print", "mail"), h.mailCardPDF)

	r.NoRoute(func(c *gin.Context) {
		AbortWithHTTPError(c, http.StatusNotFound, nil, "Halaman tidak ditemukan", "NOT_FOUND")
	})
	return nil
}

func (h *Handlers) baseURL(c *gin.Context) {
	c.Set("BaseURL", utils.GetBaseURL(c, h.Config.BaseURL))
	c.Next()
}

// link resolves path against the configured base URL.
func link(c *gin.Context, path string) string {
	base := c.GetString("BaseURL")
	if base == "" {
		base = "/"
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func redirect(c *gin.Context, code int, path string) {
	c.Redirect(code, link(c, path))
	c.Abort()
}

// Merge into existing gin.H
func H(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["BaseURL"] = c.GetString("BaseURL")
	data["AppVersion"] = utils.GetVersion()
	if s := CurrentSession(c); s != nil {
		data["Session"] = s
		data["User"] = s.User
	}
	if nav, ok := c.Get("Nav"); ok {
		data["Nav"] = nav
	}
	if _, ok := data["Flashes"]; !ok {
		data["Flashes"] = takeFlashes(c)
	}
	return data
}

// Returns a HTML response with merged data
func HTML(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data = H(c, data)
	c.HTML(code, name, data)
}

func (h *Handlers) manifest(c *gin.Context) {
	c.Header("Content-Type", "application/manifest+json")
	c.JSON(http.StatusOK, gin.H{
		"name":             "Shollu Partner Center",
		"short_name":       "Shollu Partner",
		"start_url":        link(c, "dashboard"),
		"scope":            link(c, ""),
		"display":          "standalone",
		"background_color": "#ffffff",
		"theme_color":      "#047857",
		"lang":             "id",
		"icons": []gin.H{
			{"src": link(c, "assets/icons/icon.svg"), "sizes": "any", "type": "image/svg+xml"},
		},
	})
}
