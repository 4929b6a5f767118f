package shollu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID accepts both JSON numbers and numeric strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" || len(b) == 0 {
		*id = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// EventIDs accepts a single id or a list of ids.
type EventIDs []int

func (e *EventIDs) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*e = nil
		return nil
	}
	if b[0] == '[' {
		var raw []ID
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make(EventIDs, 0, len(raw))
		for _, id := range raw {
			out = append(out, int(id))
		}
		*e = out
		return nil
	}
	var one ID
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*e = EventIDs{int(one)}
	return nil
}

// Partner is the logged-in account as reported by the backend.
type Partner struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	MosqueID ID     `json:"masjid_id"`
}

type LoginResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Token   string  `json:"token"`
	User    Partner `json:"user"`
}

type Profile struct {
	ID         ID     `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	MosqueID   ID     `json:"masjid_id"`
	MosqueName string `json:"nama_masjid"`
}

type Mosque struct {
	ID       ID     `json:"id"`
	MosqueID ID     `json:"id_masjid"`
	Name     string `json:"nama"`
}

// RemoteEvent is an event as published by the backend catalog endpoint.
type RemoteEvent struct {
	ID    int    `json:"id"`
	Label string `json:"nama"`
	Kind  string `json:"kind"`
}

type SatgasRegistration struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	MosqueID int64  `json:"masjid_id"`
	EventIDs []int  `json:"id_event"`
}

type SatgasApplication struct {
	ID         ID       `json:"id"`
	Name       string   `json:"nama"`
	Username   string   `json:"username"`
	Contact    string   `json:"contact"`
	MosqueName string   `json:"nama_masjid"`
	Status     string   `json:"status"`
	EventIDs   EventIDs `json:"id_event"`
	CreatedAt  string   `json:"created_at"`
}

type SatgasSummary struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

type SatgasPage struct {
	Page[SatgasApplication]
	Summary SatgasSummary
}

type Member struct {
	ID              ID     `json:"id"`
	Name            string `json:"fullname"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
	BirthDate       string `json:"tanggal_lahir"`
	QRCode          string `json:"qr_code"`
	TotalAttendance int    `json:"total_absen"`
	LastAttendance  string `json:"last_absen"`
	RegisteredAt    string `json:"created_at"`
}

type MemberQuery struct {
	EventID  int
	Page     int
	Limit    int
	SatgasID int64
	Gender   string
	Search   string
}

type ParticipantRegistration struct {
	QRCode    string `json:"qr_code"`
	Name      string `json:"fullname"`
	Phone     string `json:"phone"`
	Gender    string `json:"gender"`
	BirthDate string `json:"tanggal_lahir"`
	EventID   int    `json:"event_id"`
	MosqueID  int64  `json:"masjid_id"`
	SatgasID  int64  `json:"satgas_id"`
	HideName  bool   `json:"hide_name"`
}

type AttendanceRequest struct {
	QRCode    string `json:"qr_code"`
	MachineID string `json:"mesin_id"`
	EventID   int    `json:"event_id"`
}

// AttendanceResult is the flat body of the attendance endpoint. Which
// fields are present decides success or failure.
type AttendanceResult struct {
	Success  *bool  `json:"success,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	Tag      string `json:"tag,omitempty"`
	QRCode   string `json:"qr_code,omitempty"`
	EventID  int    `json:"event_id,omitempty"`
}

type AttendanceRecord struct {
	ID       ID     `json:"id"`
	UserID   ID     `json:"user_id"`
	Fullname string `json:"fullname"`
	Tag      string `json:"tag"`
	Time     string `json:"waktu"`
}

type AttendanceStats struct {
	TotalPerPrayer map[string]int     `json:"total_per_sholat"`
	Latest         []AttendanceRecord `json:"latest_absensi"`
}

type CardRequest struct {
	ID         ID     `json:"id"`
	Quantity   int    `json:"jumlah_kartu"`
	Status     string `json:"status"`
	SatgasName string `json:"nama_satgas"`
	MosqueName string `json:"nama_masjid"`
	CreatedAt  string `json:"created_at"`
}

type Surah struct {
	ID         int    `json:"id"`
	Name       string `json:"nama"`
	VerseCount int    `json:"jumlah_ayat"`
}

// LastVerse is the most recent reading logged for a participant card.
type LastVerse struct {
	ParticipantID   ID     `json:"id_peserta"`
	ParticipantName string `json:"peserta_nama"`
	SurahID         int    `json:"surat_id"`
	SurahName       string `json:"surat_nama"`
	Verse           int    `json:"ayat"`
	Date            string `json:"tanggal"`
}

type VerseLog struct {
	ParticipantID int64  `json:"participant_id"`
	Date          string `json:"date"`
	SurahID       int    `json:"surah_id"`
	Verse         int    `json:"verse"`
}

type ReadingEntry struct {
	ID              ID     `json:"id"`
	ParticipantID   ID     `json:"id_peserta"`
	ParticipantName string `json:"peserta_nama"`
	SurahName       string `json:"surat_nama"`
	OfficerName     string `json:"petugas_nama"`
	Verse           int    `json:"ayat"`
	JuzName         string `json:"juz_nama"`
	JuzNumber       int    `json:"juz_number"`
	Date            string `json:"tanggal"`
}

// Juz returns the juz label, falling back to "Juz n".
func (r ReadingEntry) Juz() string {
	if r.JuzName != "" {
		return r.JuzName
	}
	return fmt.Sprintf("Juz %d", r.JuzNumber)
}
