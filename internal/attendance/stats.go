package attendance

import (
	"strings"
	"time"

	"shollu-partner/internal/shollu"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const MsgStatsFailed = "Gagal memuat statistik"

// Prayers are the five daily prayers in order.
var Prayers = []string{"subuh", "dzuhur", "ashar", "maghrib", "isya"}

// Label capitalises a prayer key for display.
func Label(key string) string {
	// Casers keep state and are not shared between goroutines.
	return cases.Title(language.Indonesian).String(key)
}

type PrayerCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type FeedItem struct {
	Fullname string `json:"fullname"`
	Prayer   string `json:"prayer"`
	Time     string `json:"time"`
}

type Stats struct {
	Prayers []PrayerCount `json:"prayers"`
	Total   int           `json:"total"`
	Feed    []FeedItem    `json:"feed"`
}

// BuildStats shapes the backend statistics for the panel. Missing prayers
// count as zero and the feed keeps only records from now's date.
func BuildStats(s *shollu.AttendanceStats, now time.Time) Stats {
	out := Stats{Prayers: make([]PrayerCount, 0, len(Prayers)), Feed: []FeedItem{}}
	for _, p := range Prayers {
		n := s.TotalPerPrayer[p]
		out.Prayers = append(out.Prayers, PrayerCount{Key: p, Label: Label(p), Count: n})
		out.Total += n
	}
	for _, r := range TodayRecords(s.Latest, now) {
		at, _ := parseTime(r.Time, now.Location())
		out.Feed = append(out.Feed, FeedItem{
			Fullname: r.Fullname,
			Prayer:   Label(r.Tag),
			Time:     at.Format("15:04"),
		})
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func parseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// TodayRecords filters records to those on the same calendar day as now.
func TodayRecords(records []shollu.AttendanceRecord, now time.Time) []shollu.AttendanceRecord {
	y, m, d := now.Date()
	out := make([]shollu.AttendanceRecord, 0, len(records))
	for _, r := range records {
		t, ok := parseTime(r.Time, now.Location())
		if !ok {
			continue
		}
		ry, rm, rd := t.Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out
}
