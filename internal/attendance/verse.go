package attendance

import (
	"errors"
	"strconv"
	"strings"

	"shollu-partner/internal/shollu"
)

// VerseError is a form problem found before anything is sent.
type VerseError struct {
	Field   string
	Message string
}

func (e *VerseError) Error() string {
	return e.Field + ": " + e.Message
}

var ErrNoVerseDialog = errors.New("verse dialog is not open")

// VerseDialog is the overlay opened by a scan during a Qur'an event.
type VerseDialog struct {
	QRCode string           `json:"qr_code"`
	Last   shollu.LastVerse `json:"last"`
}

// VerseForm is the submitted dialog.
type VerseForm struct {
	SurahID int
	Verse   string
	Date    string
}

// ValidateVerse checks the form against the chosen surah. surah is nil when
// none was picked; a zero VerseCount means the count is unknown.
func ValidateVerse(surah *shollu.Surah, verse string) (int, error) {
	if surah == nil {
		return 0, &VerseError{Field: "surah", Message: "Pilih surah terlebih dahulu"}
	}
	verse = strings.TrimSpace(verse)
	if verse == "" {
		return 0, &VerseError{Field: "verse", Message: "Ayat wajib diisi"}
	}
	n, err := strconv.Atoi(verse)
	if err != nil {
		return 0, &VerseError{Field: "verse", Message: "Ayat harus berupa angka"}
	}
	if n < 1 {
		return 0, &VerseError{Field: "verse", Message: "Ayat minimal 1"}
	}
	if surah.VerseCount > 0 && n > surah.VerseCount {
		return 0, &VerseError{
			Field:   "verse",
			Message: "Ayat maksimal " + strconv.Itoa(surah.VerseCount) + " untuk surah " + surah.Name,
		}
	}
	return n, nil
}
