// Package shollutest is an in-memory stand-in for the Shollu partner API.
//
// It serves the same routes as the real backend from seeded demo data and
// counts every call it receives. Tests start it with httptest, the server
// command uses it when backend.mode is "demo".
package shollutest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"shollu-partner/internal/config"
	"shollu-partner/internal/shollu"

	"github.com/gin-gonic/gin"
)

const DefaultAPIKey = "demo-attendance-key"

type Account struct {
	ID       int64
	Username string
	Password string
	Name     string
	Phone    string
	Role     string
	MosqueID int64
}

type application struct {
	shollu.SatgasApplication
	password string
	mosqueID int64
}

type member struct {
	shollu.Member
	eventID  int
	satgasID int64
	mosqueID int64
}

type scan struct {
	memberID int64
	fullname string
	tag      string
	at       time.Time
}

type Backend struct {
	APIKey string

	mu           sync.Mutex
	seq          int64
	accounts     map[string]*Account
	tokens       map[string]*Account
	applications []*application
	members      []*member
	cards        []*shollu.CardRequest
	scans        []scan
	readings     []shollu.ReadingEntry
	surahs       []shollu.Surah
	mosques      map[int][]shollu.Mosque
	events       []shollu.RemoteEvent
	calls        map[string]int
	now          func() time.Time
}

// New returns a backend seeded with demo accounts and data.
// admin/password is an admin, satgas/password a field officer.
func New() *Backend {
	b := &Backend{
		APIKey:   DefaultAPIKey,
		seq:      100,
		accounts: map[string]*Account{},
		tokens:   map[string]*Account{},
		calls:    map[string]int{},
		now:      time.Now,
	}
	b.seed()
	return b
}

func (b *Backend) nextID() int64 {
	b.seq++
	return b.seq
}

func (b *Backend) seed() {
	b.AddAccount(Account{ID: 1, Username: "admin", Password: "password", Name: "Admin Shollu", Role: "admin"})
	b.AddAccount(Account{ID: 2, Username: "satgas", Password: "password", Name: "Ahmad Satgas", Role: "satgas", MosqueID: 10, Phone: "081200000002"})

	b.events = []shollu.RemoteEvent{
		{ID: 1, Label: "Pejuang Quran", Kind: "quran-tracking"},
		{ID: 3, Label: "Sholat Champions", Kind: "prayer-attendance"},
	}
	mosques := []shollu.Mosque{
		{ID: 1, MosqueID: 10, Name: "Masjid Al-Ikhlas"},
		{ID: 2, MosqueID: 11, Name: "Masjid Nurul Huda"},
	}
	b.mosques = map[int][]shollu.Mosque{
		1: mosques,
		3: append([]shollu.Mosque{{ID: 3, MosqueID: 12, Name: "Masjid Raya Baiturrahman"}}, mosques...),
	}

	for i, name := range []string{"Fajar Ramadhan", "Siti Aminah", "Hasan Basri"} {
		b.applications = append(b.applications, &application{
			SatgasApplication: shollu.SatgasApplication{
				ID:         shollu.ID(b.nextID()),
				Name:       name,
				Username:   strings.ToLower(strings.Fields(name)[0]),
				Contact:    fmt.Sprintf("08130000000%d", i),
				MosqueName: mosques[i%len(mosques)].Name,
				Status:     "pending",
				EventIDs:   shollu.EventIDs{3},
				CreatedAt:  "2025-01-0" + strconv.Itoa(i+1) + "T08:00:00Z",
			},
			password: "password",
			mosqueID: int64(mosques[i%len(mosques)].MosqueID),
		})
	}

	people := []struct {
		name, gender string
		event        int
	}{
		{"Ahmad Fauzi", "L", 3},
		{"Aisyah Putri", "P", 3},
		{"Budi Santoso", "L", 3},
		{"Dewi Lestari", "P", 3},
		{"Rizki Pratama", "L", 1},
		{"Nur Hidayah", "P", 1},
	}
	for i, p := range people {
		b.members = append(b.members, &member{
			Member: shollu.Member{
				ID:           shollu.ID(b.nextID()),
				Name:         p.name,
				Phone:        fmt.Sprintf("08570000000%d", i),
				Gender:       p.gender,
				BirthDate:    "2012-05-1" + strconv.Itoa(i),
				QRCode:       fmt.Sprintf("QR-%04d", i+1),
				RegisteredAt: "2025-01-10T07:00:00Z",
			},
			eventID:  p.event,
			satgasID: 2,
			mosqueID: 10,
		})
	}

	b.surahs = []shollu.Surah{
		{ID: 1, Name: "Al-Fatihah", VerseCount: 7},
		{ID: 2, Name: "Al-Baqarah", VerseCount: 286},
		{ID: 3, Name: "Ali 'Imran", VerseCount: 200},
		{ID: 36, Name: "Yasin", VerseCount: 83},
		{ID: 112, Name: "Al-Ikhlas", VerseCount: 4},
		{ID: 114, Name: "An-Nas", VerseCount: 6},
	}

	b.cards = []*shollu.CardRequest{
		{ID: shollu.ID(b.nextID()), Quantity: 50, Status: "request", SatgasName: "Ahmad Satgas", MosqueName: "Masjid Al-Ikhlas", CreatedAt: "2025-01-12T09:00:00Z"},
		{ID: shollu.ID(b.nextID()), Quantity: 20, Status: "disetujui", SatgasName: "Ahmad Satgas", MosqueName: "Masjid Al-Ikhlas", CreatedAt: "2025-01-05T09:00:00Z"},
	}
}

// AddAccount registers a login. It replaces an account with the same username.
func (b *Backend) AddAccount(a Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc := a
	b.accounts[a.Username] = &acc
}

// RevokeTokens forgets every issued token, so the next call gets a 401.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]*Account{}
}

// SetClock fixes the time used for prayer tags and statistics.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Calls returns how often "METHOD /path" was requested.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Applications returns a copy of all satgas applications.
func (b *Backend) Applications() []shollu.SatgasApplication {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shollu.SatgasApplication, 0, len(b.applications))
	for _, a := range b.applications {
		out = append(out, a.SatgasApplication)
	}
	return out
}

// Readings returns a copy of the Qur'an reading log.
func (b *Backend) Readings() []shollu.ReadingEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]shollu.ReadingEntry(nil), b.readings...)
}

// Start serves the backend on a local listener.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.Handler())
}

// BackendConfig points a client at srv.
func BackendConfig(srv *httptest.Server, apiKey string) config.Backend {
	return config.Backend{
		Mode:           config.BackendLive,
		BaseURL:        srv.URL,
		AttendanceURL:  srv.URL + "/api/v1/absent-qr",
		APIKey:         apiKey,
		TimeoutSeconds: 5,
	}
}

func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(b.count)

	r.POST("/auth/partners-login", b.login)
	r.POST("/auth/partners-register", b.register)
	r.GET("/auth/masjid/by-event", b.mosquesByEvent)
	r.GET("/auth/events", b.listEvents)
	r.POST("/api/v1/absent-qr", b.attendance)

	api := r.Group("/api/partners", b.auth)
	api.GET("/satgas/pending", b.adminOnly, b.pending)
	api.POST("/satgas/approve", b.adminOnly, b.approve)
	api.POST("/satgas/reject", b.adminOnly, b.reject)
	api.GET("/satgas/get-peserta", b.listMembers)
	api.POST("/satgas/register-peserta", b.registerParticipant)
	api.GET("/satgas/statistik-absen-satgas", b.stats)
	api.POST("/satgas/card/request", b.requestCards)
	api.GET("/satgas/card/requests", b.listCards)
	api.PUT("/satgas/card/requests/:id/status", b.adminOnly, b.updateCard)
	api.POST("/satgas/card/generate-by-request", b.generatePDF)
	api.GET("/satgas/profile", b.profile)
	api.PUT("/satgas/profile/update-profile", b.updateProfile)
	api.GET("/pejuang-quran/surah", b.searchSurah)
	api.GET("/pejuang-quran/last-verse", b.lastVerse)
	api.POST("/pejuang-quran/log", b.logVerse)
	api.GET("/pejuang-quran/list", b.readingList)

	return r
}

func (b *Backend) count(c *gin.Context) {
	b.mu.Lock()
	b.calls[c.Request.Method+" "+c.Request.URL.Path]++
	b.mu.Unlock()
	c.Next()
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func done(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func (b *Backend) auth(c *gin.Context) {
	token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	b.mu.Lock()
	acc, known := b.tokens[token]
	b.mu.Unlock()
	if !found || !known {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.Set("account", acc)
	c.Next()
}

func account(c *gin.Context) *Account {
	return c.MustGet("account").(*Account)
}

func (b *Backend) adminOnly(c *gin.Context) {
	if account(c).Role != "admin" {
		fail(c, http.StatusForbidden, "Forbidden")
		return
	}
	c.Next()
}

func paging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func window[T any](items []T, page, limit int) ([]T, int) {
	total := len(items)
	pages := max(1, (total+limit-1)/limit)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return items[start:end], pages
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, found := b.accounts[req.Username]
	if !found || acc.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Username atau password salah"})
		return
	}
	token := fmt.Sprintf("tok-%s-%d", acc.Username, b.nextID())
	b.tokens[token] = acc
	c.JSON(http.StatusOK, shollu.LoginResult{
		Success: true,
		Message: "Login berhasil",
		Token:   token,
		User: shollu.Partner{
			ID:       shollu.ID(acc.ID),
			Username: acc.Username,
			Name:     acc.Name,
			Role:     acc.Role,
			MosqueID: shollu.ID(acc.MosqueID),
		},
	})
}

func (b *Backend) register(c *gin.Context) {
	var req shollu.SatgasRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	if req.Name == "" || req.Username == "" || req.Password == "" || req.MosqueID == 0 || len(req.EventIDs) == 0 {
		fail(c, http.StatusBadRequest, "Data pendaftaran tidak lengkap")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.accounts[req.Username]; taken {
		fail(c, http.StatusConflict, "Username sudah digunakan")
		return
	}
	for _, a := range b.applications {
		if a.Username == req.Username && a.Status != "rejected" {
			fail(c, http.StatusConflict, "Username sudah digunakan")
			return
		}
	}
	mosqueName := ""
	for _, list := range b.mosques {
		for _, m := range list {
			if int64(m.MosqueID) == req.MosqueID {
				mosqueName = m.Name
			}
		}
	}
	b.applications = append(b.applications, &application{
		SatgasApplication: shollu.SatgasApplication{
			ID:         shollu.ID(b.nextID()),
			Name:       req.Name,
			Username:   req.Username,
			Contact:    req.Phone,
			MosqueName: mosqueName,
			Status:     "pending",
			EventIDs:   shollu.EventIDs(req.EventIDs),
			CreatedAt:  b.now().UTC().Format(time.RFC3339),
		},
		password: req.Password,
		mosqueID: req.MosqueID,
	})
	done(c, "Pendaftaran berhasil, menunggu persetujuan admin")
}

func (b *Backend) mosquesByEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Query("id_event"))
	if err != nil {
		fail(c, http.StatusBadRequest, "id_event wajib diisi")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.mosques[id]
	if list == nil {
		list = []shollu.Mosque{}
	}
	ok(c, list)
}

func (b *Backend) listEvents(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ok(c, b.events)
}

func (b *Backend) pending(c *gin.Context) {
	page, limit := paging(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	var rows []shollu.SatgasApplication
	var summary shollu.SatgasSummary
	for _, a := range b.applications {
		switch a.Status {
		case "pending":
			summary.Pending++
			rows = append(rows, a.SatgasApplication)
		case "approved":
			summary.Approved++
		case "rejected":
			summary.Rejected++
		}
	}
	summary.Total = len(b.applications)
	items, pages := window(rows, page, limit)
	if items == nil {
		items = []shollu.SatgasApplication{}
	}
	ok(c, gin.H{
		"data":         items,
		"current_page": page,
		"last_page":    pages,
		"per_page":     limit,
		"total":        len(rows),
		"summary":      summary,
	})
}

func (b *Backend) findApplication(id int64) *application {
	for _, a := range b.applications {
		if int64(a.ID) == id {
			return a
		}
	}
	return nil
}

func (b *Backend) approve(c *gin.Context) {
	var req struct {
		ID shollu.ID `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findApplication(int64(req.ID))
	if a == nil {
		fail(c, http.StatusNotFound, "Satgas tidak ditemukan")
		return
	}
	if a.Status != "pending" {
		fail(c, http.StatusConflict, "Satgas sudah diproses")
		return
	}
	a.Status = "approved"
	b.accounts[a.Username] = &Account{
		ID:       int64(a.ID),
		Username: a.Username,
		Password: a.password,
		Name:     a.Name,
		Phone:    a.Contact,
		Role:     "satgas",
		MosqueID: a.mosqueID,
	}
	done(c, "Satgas disetujui")
}

func (b *Backend) reject(c *gin.Context) {
	var req struct {
		ID shollu.ID `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findApplication(int64(req.ID))
	if a == nil {
		fail(c, http.StatusNotFound, "Satgas tidak ditemukan")
		return
	}
	if a.Status != "pending" {
		fail(c, http.StatusConflict, "Satgas sudah diproses")
		return
	}
	a.Status = "rejected"
	done(c, "Satgas ditolak")
}

func (b *Backend) listMembers(c *gin.Context) {
	page, limit := paging(c)
	eventID, _ := strconv.Atoi(c.Query("event_id"))
	satgasID, _ := strconv.ParseInt(c.Query("satgas_id"), 10, 64)
	gender := c.Query("gender")
	search := strings.ToLower(c.Query("search"))

	b.mu.Lock()
	defer b.mu.Unlock()
	rows := []shollu.Member{}
	for _, m := range b.members {
		if eventID != 0 && m.eventID != eventID {
			continue
		}
		if satgasID != 0 && m.satgasID != satgasID {
			continue
		}
		if gender != "" && m.Gender != gender {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Name), search) && !strings.Contains(strings.ToLower(m.QRCode), search) {
			continue
		}
		row := m.Member
		row.TotalAttendance, row.LastAttendance = b.attendanceOf(int64(m.ID))
		rows = append(rows, row)
	}
	items, pages := window(rows, page, limit)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"page":       page,
		"total":      len(rows),
		"totalPages": pages,
	})
}

func (b *Backend) attendanceOf(memberID int64) (int, string) {
	n, last := 0, ""
	for _, s := range b.scans {
		if s.memberID == memberID {
			n++
			last = s.at.Format(time.RFC3339)
		}
	}
	return n, last
}

func (b *Backend) registerParticipant(c *gin.Context) {
	var req shollu.ParticipantRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	if req.QRCode == "" || req.Name == "" {
		fail(c, http.StatusBadRequest, "QR code dan nama wajib diisi")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.members {
		if m.QRCode == req.QRCode {
			fail(c, http.StatusConflict, "Kartu sudah terdaftar")
			return
		}
	}
	b.members = append(b.members, &member{
		Member: shollu.Member{
			ID:           shollu.ID(b.nextID()),
			Name:         req.Name,
			Phone:        req.Phone,
			Gender:       req.Gender,
			BirthDate:    req.BirthDate,
			QRCode:       req.QRCode,
			RegisteredAt: b.now().UTC().Format(time.RFC3339),
		},
		eventID:  req.EventID,
		satgasID: account(c).ID,
		mosqueID: req.MosqueID,
	})
	done(c, "Peserta berhasil didaftarkan")
}

// prayerAt maps a wall clock time to the prayer window it falls in.
func prayerAt(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 3 && h < 11:
		return "subuh"
	case h >= 11 && h < 15:
		return "dzuhur"
	case h >= 15 && h < 18:
		return "ashar"
	case h >= 18 && h < 19:
		return "maghrib"
	default:
		return "isya"
	}
}

func (b *Backend) attendance(c *gin.Context) {
	if c.GetHeader("X-API-Key") != b.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key tidak valid"})
		return
	}
	var req shollu.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Permintaan tidak valid"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var found *member
	for _, m := range b.members {
		if m.QRCode == req.QRCode {
			found = m
		}
	}
	if found == nil {
		c.JSON(http.StatusOK, gin.H{"error": "QR tidak valid"})
		return
	}
	if found.eventID != req.EventID {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Peserta tidak terdaftar di event ini"})
		return
	}
	now := b.now()
	tag := prayerAt(now)
	for _, s := range b.scans {
		if s.memberID == int64(found.ID) && s.tag == tag && sameDay(s.at, now) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Peserta sudah absen " + tag + " hari ini"})
			return
		}
	}
	b.scans = append(b.scans, scan{memberID: int64(found.ID), fullname: found.Name, tag: tag, at: now})
	c.JSON(http.StatusOK, shollu.AttendanceResult{
		Message:  "Absensi berhasil",
		Fullname: found.Name,
		Tag:      tag,
		QRCode:   req.QRCode,
		EventID:  req.EventID,
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (b *Backend) stats(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	totals := map[string]int{"subuh": 0, "dzuhur": 0, "ashar": 0, "maghrib": 0, "isya": 0}
	latest := []shollu.AttendanceRecord{}
	for i := len(b.scans) - 1; i >= 0; i-- {
		s := b.scans[i]
		if !sameDay(s.at, now) {
			continue
		}
		totals[s.tag]++
		if len(latest) < 10 {
			latest = append(latest, shollu.AttendanceRecord{
				ID:       shollu.ID(i + 1),
				UserID:   shollu.ID(s.memberID),
				Fullname: s.fullname,
				Tag:      s.tag,
				Time:     s.at.Format(time.RFC3339),
			})
		}
	}
	ok(c, shollu.AttendanceStats{TotalPerPrayer: totals, Latest: latest})
}

func (b *Backend) requestCards(c *gin.Context) {
	var req struct {
		Quantity int `json:"jumlah_kartu"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
		fail(c, http.StatusBadRequest, "Jumlah kartu minimal 1")
		return
	}
	acc := account(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cards = append([]*shollu.CardRequest{{
		ID:         shollu.ID(b.nextID()),
		Quantity:   req.Quantity,
		Status:     "request",
		SatgasName: acc.Name,
		CreatedAt:  b.now().UTC().Format(time.RFC3339),
	}}, b.cards...)
	done(c, "Request kartu berhasil dikirim")
}

func (b *Backend) listCards(c *gin.Context) {
	page, limit := paging(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]shollu.CardRequest, 0, len(b.cards))
	for _, r := range b.cards {
		rows = append(rows, *r)
	}
	items, pages := window(rows, page, limit)
	ok(c, gin.H{
		"data": items,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      len(rows),
			"totalPages": pages,
		},
	})
}

func (b *Backend) findCard(id int64) *shollu.CardRequest {
	for _, r := range b.cards {
		if int64(r.ID) == id {
			return r
		}
	}
	return nil
}

func (b *Backend) updateCard(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		fail(c, http.StatusBadRequest, "Status wajib diisi")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.findCard(id)
	if r == nil {
		fail(c, http.StatusNotFound, "Request tidak ditemukan")
		return
	}
	r.Status = req.Status
	done(c, "Status diperbarui")
}

func (b *Backend) generatePDF(c *gin.Context) {
	var req struct {
		ID shollu.ID `json:"id_request"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	b.mu.Lock()
	r := b.findCard(int64(req.ID))
	b.mu.Unlock()
	if r == nil {
		fail(c, http.StatusNotFound, "Request tidak ditemukan")
		return
	}
	pdf := fmt.Sprintf("%%PDF-1.4\n%% kartu request %d, %d lembar\n%%%%EOF\n", r.ID, r.Quantity)
	c.Data(http.StatusOK, "application/pdf", []byte(pdf))
}

func (b *Backend) profile(c *gin.Context) {
	acc := account(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	mosqueName := ""
	for _, list := range b.mosques {
		for _, m := range list {
			if int64(m.MosqueID) == acc.MosqueID {
				mosqueName = m.Name
			}
		}
	}
	ok(c, shollu.Profile{
		ID:         shollu.ID(acc.ID),
		Username:   acc.Username,
		Name:       acc.Name,
		Phone:      acc.Phone,
		Role:       acc.Role,
		MosqueID:   shollu.ID(acc.MosqueID),
		MosqueName: mosqueName,
	})
}

func (b *Backend) updateProfile(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, "Nama wajib diisi")
		return
	}
	if req.Password != "" && len(req.Password) < 6 {
		fail(c, http.StatusBadRequest, "Password minimal 6 karakter")
		return
	}
	acc := account(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	acc.Name = req.Name
	if req.Password != "" {
		acc.Password = req.Password
	}
	done(c, "Profil berhasil diperbarui")
}

func (b *Backend) searchSurah(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("search")))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []shollu.Surah{}
	for _, s := range b.surahs {
		if q == "" || strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	ok(c, out)
}

func (b *Backend) memberByCode(code string) *member {
	for _, m := range b.members {
		if m.QRCode == code {
			return m
		}
	}
	return nil
}

func (b *Backend) lastVerse(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.memberByCode(c.Query("qr_code"))
	if m == nil {
		fail(c, http.StatusNotFound, "Peserta tidak ditemukan")
		return
	}
	last := shollu.LastVerse{ParticipantID: m.ID, ParticipantName: m.Name}
	for _, r := range b.readings {
		if r.ParticipantID == m.ID {
			last.SurahName = r.SurahName
			last.Verse = r.Verse
			last.Date = r.Date
			for _, s := range b.surahs {
				if s.Name == r.SurahName {
					last.SurahID = s.ID
				}
			}
		}
	}
	ok(c, last)
}

func (b *Backend) logVerse(c *gin.Context) {
	var req shollu.VerseLog
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Permintaan tidak valid")
		return
	}
	acc := account(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	var m *member
	for _, x := range b.members {
		if int64(x.ID) == req.ParticipantID {
			m = x
		}
	}
	if m == nil {
		fail(c, http.StatusNotFound, "Peserta tidak ditemukan")
		return
	}
	var surah *shollu.Surah
	for i := range b.surahs {
		if b.surahs[i].ID == req.SurahID {
			surah = &b.surahs[i]
		}
	}
	if surah == nil || req.Verse < 1 || req.Verse > surah.VerseCount {
		fail(c, http.StatusBadRequest, "Surah atau ayat tidak valid")
		return
	}
	b.readings = append(b.readings, shollu.ReadingEntry{
		ID:              shollu.ID(b.nextID()),
		ParticipantID:   m.ID,
		ParticipantName: m.Name,
		SurahName:       surah.Name,
		OfficerName:     acc.Name,
		Verse:           req.Verse,
		JuzNumber:       juzOf(surah.ID),
		Date:            req.Date,
	})
	done(c, "Bacaan berhasil dicatat")
}

// juzOf is a coarse juz lookup, good enough for demo data.
func juzOf(surahID int) int {
	switch {
	case surahID <= 2:
		return 1
	case surahID >= 78:
		return 30
	default:
		return min(29, 1+surahID/4)
	}
}

func (b *Backend) readingList(c *gin.Context) {
	page, limit := paging(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := append([]shollu.ReadingEntry(nil), b.readings...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	items, pages := window(rows, page, limit)
	if items == nil {
		items = []shollu.ReadingEntry{}
	}
	ok(c, gin.H{
		"data": items,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      len(rows),
			"totalPages": pages,
		},
	})
}
