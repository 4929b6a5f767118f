package shollu_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shollu-partner/internal/shollu"
	"shollu-partner/internal/shollu/shollutest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake(t *testing.T) (*shollutest.Backend, *shollu.Client) {
	t.Helper()
	fake := shollutest.New()
	srv := fake.Start()
	t.Cleanup(srv.Close)
	return fake, shollu.New(shollutest.BackendConfig(srv, shollutest.DefaultAPIKey))
}

func serve(t *testing.T, status int, body string) *shollu.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return shollu.New(shollutest.BackendConfig(srv, "k"))
}

func login(t *testing.T, c *shollu.Client, username string) string {
	t.Helper()
	res, err := c.Login(context.Background(), username, "password")
	require.NoError(t, err)
	return res.Token
}

func TestLogin(t *testing.T) {
	_, c := newFake(t)

	res, err := c.Login(context.Background(), "admin", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin", res.User.Role)

	_, err = c.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Username atau password salah", shollu.MessageOf(err))
}

func TestLoginWithoutTokenFails(t *testing.T) {
	c := serve(t, http.StatusOK, `{"success":true,"message":"ok"}`)
	_, err := c.Login(context.Background(), "a", "b")
	var apiErr *shollu.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ok", apiErr.Message)
}

func TestUnauthorizedInvokesHandler(t *testing.T) {
	fake, c := newFake(t)
	token := login(t, c, "satgas")

	var got atomic.Value
	c.OnUnauthorized(func(tok string) { got.Store(tok) })

	_, err := c.Profile(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, got.Load())

	fake.RevokeTokens()
	_, err = c.Profile(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shollu.ErrUnauthorized))
	assert.Equal(t, token, got.Load())
}

func TestErrorMessagePrefersErrorField(t *testing.T) {
	c := serve(t, http.StatusBadRequest, `{"error":"QR tidak valid","message":"Bad Request"}`)
	_, err := c.Events(context.Background())
	assert.Equal(t, "QR tidak valid", shollu.MessageOf(err))

	c = serve(t, http.StatusInternalServerError, `not json`)
	_, err = c.Events(context.Background())
	var apiErr *shollu.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, apiErr.Error(), "Internal Server Error")
}

func TestSuccessFalseIsAnError(t *testing.T) {
	c := serve(t, http.StatusOK, `{"success":false,"message":"Kuota habis"}`)
	_, err := c.RequestCards(context.Background(), "tok", 5)
	assert.Equal(t, "Kuota habis", shollu.MessageOf(err))
}

func TestSuccessFalseWithErrorObject(t *testing.T) {
	c := serve(t, http.StatusOK, `{"success":false,"error":{"code":"QUOTA","message":"Kuota habis"}}`)
	_, err := c.RequestCards(context.Background(), "tok", 5)
	var apiErr *shollu.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, "Kuota habis", apiErr.Message)

	c = serve(t, http.StatusOK, `{"success":false,"error":{"code":"QUOTA"},"message":"Permintaan gagal"}`)
	_, err = c.RequestCards(context.Background(), "tok", 5)
	assert.Equal(t, "Permintaan gagal", shollu.MessageOf(err))

	c = serve(t, http.StatusOK, `{"success":false,"error":null}`)
	_, err = c.RequestCards(context.Background(), "tok", 5)
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Message)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := shollutest.BackendConfig(srv, "")
	srv.Close()

	_, err := shollu.New(cfg).Events(context.Background())
	assert.ErrorIs(t, err, shollu.ErrTransport)
}

func TestPaginationShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  shollu.Pagination
		items int
	}{
		{
			name:  "flat",
			body:  `{"success":true,"data":[{"id":1},{"id":2}],"page":1,"total":25,"totalPages":3}`,
			want:  shollu.Pagination{Page: 1, Limit: 10, Total: 25, TotalPages: 3},
			items: 2,
		},
		{
			name:  "nested pagination",
			body:  `{"success":true,"data":{"data":[{"id":"7"}],"pagination":{"page":2,"limit":5,"total":6,"totalPages":2}}}`,
			want:  shollu.Pagination{Page: 2, Limit: 5, Total: 6, TotalPages: 2},
			items: 1,
		},
		{
			name:  "laravel style",
			body:  `{"data":{"data":[],"current_page":3,"last_page":4,"per_page":20,"total":70}}`,
			want:  shollu.Pagination{Page: 3, Limit: 20, Total: 70, TotalPages: 4},
			items: 0,
		},
		{
			name:  "total only",
			body:  `{"data":[{"id":1}],"total":21}`,
			want:  shollu.Pagination{Page: 1, Limit: 10, Total: 21, TotalPages: 3},
			items: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, http.StatusOK, tt.body)
			p, err := c.CardRequests(context.Background(), "tok", 1, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Pagination)
			assert.Len(t, p.Items, tt.items)
		})
	}
}

func TestPaginationNavigation(t *testing.T) {
	p := shollu.Pagination{Page: 1, TotalPages: 3}
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 2, p.Next())

	p = shollu.Pagination{Page: 3, TotalPages: 3}
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.Prev())
}

func TestPendingSatgasSummary(t *testing.T) {
	_, c := newFake(t)
	token := login(t, c, "admin")

	page, err := c.PendingSatgas(context.Background(), token, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, shollu.SatgasSummary{Pending: 3, Total: 3}, page.Summary)
	assert.Equal(t, shollu.EventIDs{3}, page.Items[0].EventIDs)

	_, err = c.ApproveSatgas(context.Background(), token, int64(page.Items[0].ID), page.Items[0].EventIDs)
	require.NoError(t, err)
	_, err = c.RejectSatgas(context.Background(), token, int64(page.Items[1].ID))
	require.NoError(t, err)

	page, err = c.PendingSatgas(context.Background(), token, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, shollu.SatgasSummary{Pending: 1, Approved: 1, Rejected: 1, Total: 3}, page.Summary)
}

func TestSummaryTotalIsDerived(t *testing.T) {
	c := serve(t, http.StatusOK, `{"data":{"data":[],"summary":{"pending":2,"approved":3,"rejected":1}}}`)
	page, err := c.PendingSatgas(context.Background(), "tok", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Summary.Total)
}

func TestEventIDsDecoding(t *testing.T) {
	var app shollu.SatgasApplication
	require.NoError(t, json.Unmarshal([]byte(`{"id":"4","id_event":3}`), &app))
	assert.Equal(t, shollu.ID(4), app.ID)
	assert.Equal(t, shollu.EventIDs{3}, app.EventIDs)

	require.NoError(t, json.Unmarshal([]byte(`{"id_event":[1,"3"]}`), &app))
	assert.Equal(t, shollu.EventIDs{1, 3}, app.EventIDs)

	require.NoError(t, json.Unmarshal([]byte(`{"id_event":null}`), &app))
	assert.Empty(t, app.EventIDs)
}

func TestApproveSendsEventIDs(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	c := shollu.New(shollutest.BackendConfig(srv, ""))

	_, err := c.ApproveSatgas(context.Background(), "tok", 9, []int{3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(9), "id_event": float64(3)}, body)

	_, err = c.ApproveSatgas(context.Background(), "tok", 9, []int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(3)}, body["id_event"])

	body = nil
	_, err = c.ApproveSatgas(context.Background(), "tok", 9, nil)
	require.NoError(t, err)
	assert.NotContains(t, body, "id_event")
}

func TestSubmitAttendance(t *testing.T) {
	fake, c := newFake(t)
	fake.SetClock(func() time.Time { return time.Date(2025, 1, 20, 5, 0, 0, 0, time.Local) })

	res, err := c.SubmitAttendance(context.Background(), shollu.AttendanceRequest{QRCode: "QR-0001", MachineID: "2", EventID: 3})
	require.NoError(t, err)
	assert.Equal(t, "Ahmad Fauzi", res.Fullname)
	assert.Equal(t, "subuh", res.Tag)

	res, err = c.SubmitAttendance(context.Background(), shollu.AttendanceRequest{QRCode: "QR-0001", MachineID: "2", EventID: 3})
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.False(t, *res.Success)
	assert.Contains(t, res.Message, "sudah absen")

	res, err = c.SubmitAttendance(context.Background(), shollu.AttendanceRequest{QRCode: "nope", EventID: 3})
	require.NoError(t, err)
	assert.Equal(t, "QR tidak valid", res.Error)

	assert.Equal(t, 3, fake.Calls("POST /api/v1/absent-qr"))
}

func TestSubmitAttendanceRequiresAPIKey(t *testing.T) {
	fake := shollutest.New()
	srv := fake.Start()
	t.Cleanup(srv.Close)
	c := shollu.New(shollutest.BackendConfig(srv, "wrong"))

	var hit atomic.Bool
	c.OnUnauthorized(func(string) { hit.Store(true) })

	_, err := c.SubmitAttendance(context.Background(), shollu.AttendanceRequest{QRCode: "QR-0001", EventID: 3})
	assert.Equal(t, "API key tidak valid", shollu.MessageOf(err))
	assert.False(t, hit.Load())
}

func TestMembersFilters(t *testing.T) {
	_, c := newFake(t)
	token := login(t, c, "satgas")

	page, err := c.Members(context.Background(), token, shollu.MemberQuery{EventID: 3, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 4, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	page, err = c.Members(context.Background(), token, shollu.MemberQuery{EventID: 3, Page: 1, Limit: 10, Gender: "P", Search: "aisyah"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "QR-0002", page.Items[0].QRCode)
}

func TestGenerateCardPDF(t *testing.T) {
	_, c := newFake(t)
	token := login(t, c, "admin")

	cards, err := c.CardRequests(context.Background(), token, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, cards.Items)

	pdf, err := c.GenerateCardPDF(context.Background(), token, int64(cards.Items[0].ID))
	require.NoError(t, err)
	assert.True(t, len(pdf) > 4 && string(pdf[:4]) == "%PDF")

	_, err = c.GenerateCardPDF(context.Background(), token, 999999)
	assert.Equal(t, "Request tidak ditemukan", shollu.MessageOf(err))
}

func TestVerseLogFlow(t *testing.T) {
	_, c := newFake(t)
	token := login(t, c, "satgas")
	ctx := context.Background()

	surahs, err := c.SearchSurah(ctx, token, "baqarah")
	require.NoError(t, err)
	require.Len(t, surahs, 1)
	assert.Equal(t, 286, surahs[0].VerseCount)

	last, err := c.LastVerse(ctx, token, "QR-0005")
	require.NoError(t, err)
	assert.Zero(t, last.Verse)

	_, err = c.LogVerse(ctx, token, shollu.VerseLog{ParticipantID: int64(last.ParticipantID), Date: "2025-01-20", SurahID: 2, Verse: 10})
	require.NoError(t, err)

	last, err = c.LastVerse(ctx, token, "QR-0005")
	require.NoError(t, err)
	assert.Equal(t, 2, last.SurahID)
	assert.Equal(t, 10, last.Verse)

	log, err := c.ReadingLog(ctx, token, 1, 10)
	require.NoError(t, err)
	require.Len(t, log.Items, 1)
	assert.Equal(t, "Rizki Pratama", log.Items[0].ParticipantName)
	assert.Equal(t, "Juz 1", log.Items[0].Juz())
}

func TestAttendanceStatsDefaultsMap(t *testing.T) {
	c := serve(t, http.StatusOK, `{"success":true,"data":{"latest_absensi":[]}}`)
	stats, err := c.AttendanceStats(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, stats.TotalPerPrayer)
}
