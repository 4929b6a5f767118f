package attendance

import (
	"strings"
	"time"

	"shollu-partner/internal/shollu"
)

type Cue string

const (
	CueSuccess Cue = "success"
	CueError   Cue = "error"
)

const (
	msgFailed   = "Absensi gagal"
	msgSendFail = "Gagal mengirim data absensi. Coba lagi."
	msgRecorded = "Absensi berhasil"
)

// Outcome is what the result dialog shows after a scan.
type Outcome struct {
	Success      bool          `json:"success"`
	Cue          Cue           `json:"cue"`
	Fullname     string        `json:"fullname,omitempty"`
	Tag          string        `json:"tag,omitempty"`
	QRCode       string        `json:"qr_code,omitempty"`
	EventLabel   string        `json:"event_label,omitempty"`
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"-"`
	DismissMS    int64         `json:"dismiss_ms"`
}

// Classify interprets the attendance endpoint answer. The checks run in a
// fixed order: a name means success, then an error field, then an explicit
// success:false with a message.
func Classify(res *shollu.AttendanceResult, err error) Outcome {
	if err != nil {
		msg := shollu.MessageOf(err)
		if msg == "" {
			msg = msgSendFail
		}
		return failure(msg)
	}
	if res == nil {
		return failure(msgFailed)
	}

	switch {
	case strings.TrimSpace(res.Fullname) != "":
		msg := res.Message
		if msg == "" {
			msg = msgRecorded
		}
		return Outcome{
			Success:  true,
			Cue:      CueSuccess,
			Fullname: res.Fullname,
			Tag:      res.Tag,
			QRCode:   res.QRCode,
			Message:  msg,
		}
	case res.Error != "":
		return failure(res.Error)
	case res.Success != nil && !*res.Success && res.Message != "":
		return failure(res.Message)
	default:
		return failure(msgFailed)
	}
}

func failure(msg string) Outcome {
	return Outcome{Cue: CueError, Message: msg}
}

func (o Outcome) withDismiss(d time.Duration) Outcome {
	o.DismissAfter = d
	o.DismissMS = d.Milliseconds()
	return o
}
