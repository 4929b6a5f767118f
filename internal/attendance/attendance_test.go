package attendance

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"shollu-partner/internal/events"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/shollu/shollutest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		res     *shollu.AttendanceResult
		err     error
		success bool
		message string
	}{
		{
			name:    "fullname wins over everything",
			res:     &shollu.AttendanceResult{Fullname: "Ahmad", Error: "ignored", Success: boolPtr(false)},
			success: true,
			message: "Absensi berhasil",
		},
		{
			name:    "fullname with message",
			res:     &shollu.AttendanceResult{Fullname: "Ahmad", Message: "Tercatat subuh"},
			success: true,
			message: "Tercatat subuh",
		},
		{
			name:    "error field",
			res:     &shollu.AttendanceResult{Error: "QR tidak valid", Message: "other"},
			message: "QR tidak valid",
		},
		{
			name:    "success false with message",
			res:     &shollu.AttendanceResult{Success: boolPtr(false), Message: "Sudah absen"},
			message: "Sudah absen",
		},
		{
			name:    "success false without message",
			res:     &shollu.AttendanceResult{Success: boolPtr(false)},
			message: "Absensi gagal",
		},
		{
			name:    "message alone is not a failure reason",
			res:     &shollu.AttendanceResult{Message: "hmm"},
			message: "Absensi gagal",
		},
		{
			name:    "request error with backend message",
			err:     &shollu.APIError{Status: http.StatusBadRequest, Message: "Event tidak aktif"},
			message: "Event tidak aktif",
		},
		{
			name:    "request error without message",
			err:     errors.New("dial tcp: refused"),
			message: "Gagal mengirim data absensi. Coba lagi.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.res, tt.err)
			assert.Equal(t, tt.success, out.Success)
			assert.Equal(t, tt.message, out.Message)
			if tt.success {
				assert.Equal(t, CueSuccess, out.Cue)
			} else {
				assert.Equal(t, CueError, out.Cue)
			}
		})
	}
}

func TestValidateVerse(t *testing.T) {
	fatihah := &shollu.Surah{ID: 1, Name: "Al-Fatihah", VerseCount: 7}
	unknown := &shollu.Surah{ID: 2}

	var verr *VerseError
	_, err := ValidateVerse(nil, "3")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Pilih surah terlebih dahulu", verr.Message)

	tests := []struct {
		in   string
		want string
	}{
		{"", "Ayat wajib diisi"},
		{" ", "Ayat wajib diisi"},
		{"0", "Ayat minimal 1"},
		{"-1", "Ayat minimal 1"},
		{"abc", "Ayat harus berupa angka"},
		{"2.5", "Ayat harus berupa angka"},
	}
	for _, tt := range tests {
		_, err = ValidateVerse(fatihah, tt.in)
		require.ErrorAs(t, err, &verr, tt.in)
		assert.Equal(t, "verse", verr.Field, tt.in)
		assert.Equal(t, tt.want, verr.Message, tt.in)
	}

	_, err = ValidateVerse(fatihah, "8")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "7")

	n, err := ValidateVerse(fatihah, "7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = ValidateVerse(unknown, "250")
	require.NoError(t, err)
	assert.Equal(t, 250, n)
}

func TestBuildStats(t *testing.T) {
	now := time.Date(2025, 1, 20, 13, 0, 0, 0, time.UTC)
	stats := BuildStats(&shollu.AttendanceStats{
		TotalPerPrayer: map[string]int{"subuh": 4, "dzuhur": 2},
		Latest: []shollu.AttendanceRecord{
			{Fullname: "Ahmad", Tag: "dzuhur", Time: "2025-01-20T12:10:00Z"},
			{Fullname: "Budi", Tag: "isya", Time: "2025-01-19 19:30:00"},
			{Fullname: "Citra", Tag: "subuh", Time: "2025-01-20 04:45:00"},
			{Fullname: "Dodi", Tag: "subuh", Time: "garbage"},
		},
	}, now)

	require.Len(t, stats.Prayers, 5)
	assert.Equal(t, PrayerCount{Key: "subuh", Label: "Subuh", Count: 4}, stats.Prayers[0])
	assert.Equal(t, 0, stats.Prayers[4].Count)
	assert.Equal(t, 6, stats.Total)

	require.Len(t, stats.Feed, 2)
	assert.Equal(t, FeedItem{Fullname: "Ahmad", Prayer: "Dzuhur", Time: "12:10"}, stats.Feed[0])
	assert.Equal(t, "Citra", stats.Feed[1].Fullname)
}

type fixture struct {
	fake   *shollutest.Backend
	client *shollu.Client
	orch   *Orchestrator
	token  string
	saw    []Outcome
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := shollutest.New()
	fake.SetClock(func() time.Time { return time.Date(2025, 1, 20, 5, 0, 0, 0, time.Local) })
	srv := fake.Start()
	t.Cleanup(srv.Close)

	client := shollu.New(shollutest.BackendConfig(srv, shollutest.DefaultAPIKey))
	res, err := client.Login(context.Background(), "satgas", "password")
	require.NoError(t, err)

	catalog, err := events.NewCatalog(events.Defaults())
	require.NoError(t, err)

	f := &fixture{fake: fake, client: client, token: res.Token}
	f.orch = New(client, qrscan.ManualCapture{}, catalog, Options{
		MachineID:    "2",
		DismissAfter: 500 * time.Millisecond,
		OnRecorded:   func(o Outcome) { f.saw = append(f.saw, o) },
		Now:          func() time.Time { return time.Date(2025, 1, 20, 5, 0, 0, 0, time.Local) },
	})
	return f
}

func TestPrayerScanSubmitsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Scan(ctx, f.token, qrscan.Input{Text: "QR-0001"})
	assert.ErrorIs(t, err, ErrScannerClosed)

	require.NoError(t, f.orch.OpenScanner(3))
	assert.Equal(t, StateScanner, f.orch.View().State)

	res, err := f.orch.Scan(ctx, f.token, qrscan.Input{Text: "QR-0001"})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Success)
	assert.Equal(t, "Ahmad Fauzi", res.Outcome.Fullname)
	assert.Equal(t, "Sholat Champions", res.Outcome.EventLabel)
	assert.Equal(t, "subuh", res.Outcome.Tag)
	assert.Equal(t, int64(500), res.Outcome.DismissMS)
	assert.Equal(t, StateHome, f.orch.View().State)

	_, err = f.orch.Scan(ctx, f.token, qrscan.Input{Text: "QR-0002"})
	assert.ErrorIs(t, err, ErrScannerClosed)

	assert.Equal(t, 1, f.fake.Calls("POST /api/v1/absent-qr"))
	require.Len(t, f.saw, 1)
}

func TestPrayerScanFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.orch.OpenScanner(3))
	res, err := f.orch.Scan(ctx, f.token, qrscan.Input{Text: "UNKNOWN"})
	require.NoError(t, err)
	assert.False(t, res.Outcome.Success)
	assert.Equal(t, "QR tidak valid", res.Outcome.Message)
	assert.Equal(t, res.Outcome, f.orch.View().LastOutcome)
	assert.Empty(t, f.saw)
}

func TestEmptyScanKeepsScannerOpen(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.OpenScanner(3))

	_, err := f.orch.Scan(context.Background(), f.token, qrscan.Input{Text: "  "})
	assert.ErrorIs(t, err, qrscan.ErrNoCode)
	assert.Equal(t, StateScanner, f.orch.View().State)
	assert.Zero(t, f.fake.Calls("POST /api/v1/absent-qr"))
}

func TestUnknownEventRejected(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.orch.OpenScanner(2), events.ErrUnknownEvent)
	assert.Equal(t, StateHome, f.orch.View().State)
}

func TestQuranScanOpensVerseDialog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.orch.OpenScanner(1))
	res, err := f.orch.Scan(ctx, f.token, qrscan.Input{Text: "QR-0005"})
	require.NoError(t, err)
	require.NotNil(t, res.Verse)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, "Rizki Pratama", res.Verse.Last.ParticipantName)
	assert.Zero(t, f.fake.Calls("POST /api/v1/absent-qr"))

	surahs, err := f.orch.SearchSurah(ctx, f.token, "fatihah")
	require.NoError(t, err)
	require.Len(t, surahs, 1)

	err = f.orch.SubmitVerse(ctx, f.token, VerseForm{Verse: "3"})
	var verr *VerseError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "surah", verr.Field)

	err = f.orch.SubmitVerse(ctx, f.token, VerseForm{SurahID: 1, Verse: "8"})
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.fake.Calls("POST /api/partners/pejuang-quran/log"))

	require.NoError(t, f.orch.SubmitVerse(ctx, f.token, VerseForm{SurahID: 1, Verse: "7"}))
	assert.Nil(t, f.orch.View().Verse)

	readings := f.fake.Readings()
	require.Len(t, readings, 1)
	assert.Equal(t, 7, readings[0].Verse)
	assert.Equal(t, "2025-01-20", readings[0].Date)

	assert.ErrorIs(t, f.orch.SubmitVerse(ctx, f.token, VerseForm{SurahID: 1, Verse: "1"}), ErrNoVerseDialog)
}

func TestQuranScanUnknownParticipant(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.OpenScanner(1))

	res, err := f.orch.Scan(context.Background(), f.token, qrscan.Input{Text: "NOPE"})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, "Peserta tidak ditemukan", res.Outcome.Message)
	assert.Nil(t, f.orch.View().Verse)
}

func TestRegistry(t *testing.T) {
	built := 0
	r := NewRegistry(func(machineID string) *Orchestrator {
		built++
		assert.Equal(t, "42", machineID)
		return New(nil, qrscan.ManualCapture{}, nil, Options{MachineID: machineID})
	})

	a := r.Get("s1", 42)
	assert.Same(t, a, r.Get("s1", 42))
	assert.Equal(t, 1, built)

	r.Drop("s1")
	r.Drop("s1")
	assert.Zero(t, r.Len())
	assert.NotSame(t, a, r.Get("s1", 42))
}
