package shollu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// checkSuccess turns a 2xx body with success:false into an APIError.
func checkSuccess(raw []byte) error {
	var b struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	if b.Success != nil && !*b.Success {
		return &APIError{Status: http.StatusOK, Message: bodyMessage(raw)}
	}
	return nil
}

func list[T any](ctx context.Context, c *Client, r request, page, limit int) (Page[T], json.RawMessage, error) {
	raw, _, err := c.send(ctx, r)
	if err != nil {
		return Page[T]{}, nil, err
	}
	if err := checkSuccess(raw); err != nil {
		return Page[T]{}, nil, err
	}
	return decodePage[T](raw, page, limit)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// Login authenticates a partner account. A rejected login is an *APIError
// carrying the backend message, possibly empty.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	raw, _, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/partners-login",
		body:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return nil, err
	}

	var res LoginResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !res.Success || res.Token == "" {
		return nil, &APIError{Status: http.StatusOK, Message: res.Message}
	}
	return &res, nil
}

func (c *Client) RegisterSatgas(ctx context.Context, reg SatgasRegistration) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/partners-register",
		body:   reg,
	})
}

func (c *Client) MosquesByEvent(ctx context.Context, eventID int) ([]Mosque, error) {
	q := url.Values{}
	q.Set("id_event", strconv.Itoa(eventID))
	return call[[]Mosque](ctx, c, request{
		method: http.MethodGet,
		path:   "/auth/masjid/by-event",
		query:  q,
	})
}

func (c *Client) Events(ctx context.Context) ([]RemoteEvent, error) {
	return call[[]RemoteEvent](ctx, c, request{
		method: http.MethodGet,
		path:   "/auth/events",
	})
}

func (c *Client) PendingSatgas(ctx context.Context, token string, page, limit int) (*SatgasPage, error) {
	p, holder, err := list[SatgasApplication](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/satgas/pending",
		query:  pageQuery(page, limit),
		token:  token,
	}, page, limit)
	if err != nil {
		return nil, err
	}

	out := &SatgasPage{Page: p}
	var extra struct {
		Summary *SatgasSummary `json:"summary"`
	}
	if err := json.Unmarshal(holder, &extra); err == nil && extra.Summary != nil {
		out.Summary = *extra.Summary
	}
	if out.Summary.Total == 0 {
		out.Summary.Total = out.Summary.Pending + out.Summary.Approved + out.Summary.Rejected
	}
	return out, nil
}

// ApproveSatgas approves an application. eventIDs are the ones chosen at
// registration and are sent back unchanged.
func (c *Client) ApproveSatgas(ctx context.Context, token string, id int64, eventIDs []int) (Ack, error) {
	body := map[string]any{"id": id}
	switch len(eventIDs) {
	case 0:
	case 1:
		body["id_event"] = eventIDs[0]
	default:
		body["id_event"] = eventIDs
	}
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/partners/satgas/approve",
		body:   body,
		token:  token,
	})
}

func (c *Client) RejectSatgas(ctx context.Context, token string, id int64) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/partners/satgas/reject",
		body:   map[string]any{"id": id},
		token:  token,
	})
}

func (c *Client) Members(ctx context.Context, token string, mq MemberQuery) (*Page[Member], error) {
	q := pageQuery(mq.Page, mq.Limit)
	q.Set("event_id", strconv.Itoa(mq.EventID))
	if mq.SatgasID != 0 {
		q.Set("satgas_id", strconv.FormatInt(mq.SatgasID, 10))
	}
	if mq.Gender != "" {
		q.Set("gender", mq.Gender)
	}
	if mq.Search != "" {
		q.Set("search", mq.Search)
	}
	p, _, err := list[Member](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/satgas/get-peserta",
		query:  q,
		token:  token,
	}, mq.Page, mq.Limit)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) RegisterParticipant(ctx context.Context, token string, reg ParticipantRegistration) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/partners/satgas/register-peserta",
		body:   reg,
		token:  token,
	})
}

// SubmitAttendance posts one scanned code. The result body is returned as
// is, classification is left to the caller.
func (c *Client) SubmitAttendance(ctx context.Context, req AttendanceRequest) (*AttendanceResult, error) {
	raw, _, err := c.send(ctx, request{
		method: http.MethodPost,
		url:    c.attendanceURL,
		body:   req,
		apiKey: true,
	})
	if err != nil {
		return nil, err
	}
	var res AttendanceResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &res, nil
}

func (c *Client) AttendanceStats(ctx context.Context, token string) (*AttendanceStats, error) {
	stats, err := call[AttendanceStats](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/satgas/statistik-absen-satgas",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if stats.TotalPerPrayer == nil {
		stats.TotalPerPrayer = map[string]int{}
	}
	return &stats, nil
}

func (c *Client) RequestCards(ctx context.Context, token string, quantity int) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/partners/satgas/card/request",
		body:   map[string]int{"jumlah_kartu": quantity},
		token:  token,
	})
}

func (c *Client) CardRequests(ctx context.Context, token string, page, limit int) (*Page[CardRequest], error) {
	p, _, err := list[CardRequest](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/satgas/card/requests",
		query:  pageQuery(page, limit),
		token:  token,
	}, page, limit)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateCardRequestStatus(ctx context.Context, token string, id int64, status string) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPut,
		path:   "/api/partners/satgas/card/requests/" + strconv.FormatInt(id, 10) + "/status",
		body:   map[string]string{"status": status},
		token:  token,
	})
}

// GenerateCardPDF returns the printable cards of a request as PDF bytes.
func (c *Client) GenerateCardPDF(ctx context.Context, token string, id int64) ([]byte, error) {
	raw, header, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/api/partners/satgas/card/generate-by-request",
		body:   map[string]string{"id_request": strconv.FormatInt(id, 10)},
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(header.Get("Content-Type"), "application/json") {
		if err := checkSuccess(raw); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: expected pdf, got json", ErrDecode)
	}
	return raw, nil
}

func (c *Client) SearchSurah(ctx context.Context, token string, query string) ([]Surah, error) {
	q := url.Values{}
	q.Set("search", query)
	return call[[]Surah](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/pejuang-quran/surah",
		query:  q,
		token:  token,
	})
}

func (c *Client) LastVerse(ctx context.Context, token string, qrCode string) (*LastVerse, error) {
	q := url.Values{}
	q.Set("qr_code", qrCode)
	last, err := call[LastVerse](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/pejuang-quran/last-verse",
		query:  q,
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return &last, nil
}

func (c *Client) LogVerse(ctx context.Context, token string, entry VerseLog) (Ack, error) {
	return ack(ctx, c, request{
		method: http.MethodPost,
		path:   "/api/partners/pejuang-quran/log",
		body:   entry,
		token:  token,
	})
}

func (c *Client) ReadingLog(ctx context.Context, token string, page, limit int) (*Page[ReadingEntry], error) {
	p, _, err := list[ReadingEntry](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/pejuang-quran/list",
		query:  pageQuery(page, limit),
		token:  token,
	}, page, limit)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	p, err := call[Profile](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/partners/satgas/profile",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile changes the display name and, when non-empty, the password.
func (c *Client) UpdateProfile(ctx context.Context, token string, name, password string) (Ack, error) {
	body := map[string]string{"name": name}
	if password != "" {
		body["password"] = password
	}
	return ack(ctx, c, request{
		method: http.MethodPut,
		path:   "/api/partners/satgas/profile/update-profile",
		body:   body,
		token:  token,
	})
}
