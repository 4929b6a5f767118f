package routes

import (
	"errors"
	"net/http"

	"shollu-partner/internal/attendance"
	"shollu-partner/internal/events"
	"shollu-partner/internal/jwt"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/query"
	"shollu-partner/internal/session"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/status"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

var (
	// Authentication errors
	ErrUnauthorized = errors.New("unauthorized")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Internal errors
	ErrInternalServer = errors.New("internal server error")
	ErrMailDisabled   = errors.New("print office mail is not configured")

	ErrNotPrintable = errors.New("card request is not printable")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:   http.StatusBadRequest,
	ErrInvalidParameter: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:            http.StatusUnauthorized,
	jwt.ErrNonValidToken:       http.StatusUnauthorized,
	session.ErrSessionNotFound: http.StatusUnauthorized,
	session.ErrSessionExpired:  http.StatusUnauthorized,
	shollu.ErrUnauthorized:     http.StatusUnauthorized,

	// 403 Forbidden
	ErrForbidden: http.StatusForbidden,

	// 404 Not Found
	events.ErrUnknownEvent: http.StatusNotFound,

	// 409 Conflict
	attendance.ErrScannerClosed: http.StatusConflict,
	attendance.ErrNoVerseDialog: http.StatusConflict,
	qrscan.ErrSessionSpent:      http.StatusConflict,
	qrscan.ErrSessionClosed:     http.StatusConflict,
	query.ErrStale:              http.StatusConflict,
	status.ErrInvalidTransition: http.StatusConflict,
	ErrNotPrintable:             http.StatusConflict,

	// 413 Request Entity Too Large
	qrscan.ErrImageTooLarge: http.StatusRequestEntityTooLarge,

	// 422 Unprocessable Entity
	qrscan.ErrNoCode:        http.StatusUnprocessableEntity,
	qrscan.ErrImageInput:    http.StatusUnprocessableEntity,
	status.ErrUnknownStatus: http.StatusUnprocessableEntity,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	shollu.ErrDecode:  http.StatusBadGateway,

	// 503 Service Unavailable
	shollu.ErrTransport: http.StatusServiceUnavailable,
	ErrMailDisabled:     http.StatusServiceUnavailable,
}

// errorInfoMap maps errors to user-facing messages and optional stop codes
var errorInfoMap = map[error]ErrorInfo{
	ErrUnauthorized: {
		Message:   "Silakan masuk terlebih dahulu",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	jwt.ErrNonValidToken: {
		Message:   "Sesi tidak valid, silakan masuk kembali",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	session.ErrSessionNotFound: {
		Message:   "Sesi tidak ditemukan, silakan masuk kembali",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	session.ErrSessionExpired: {
		Message:   "Sesi telah berakhir, silakan masuk kembali",
		StopCodes: []string{"AUTH_EXPIRED"},
	},
	shollu.ErrUnauthorized: {
		Message:   "Sesi telah berakhir, silakan masuk kembali",
		StopCodes: []string{"AUTH_EXPIRED"},
	},

	ErrForbidden: {
		Message:   "Anda tidak memiliki akses ke halaman ini",
		StopCodes: []string{"FORBIDDEN"},
	},

	events.ErrUnknownEvent: {
		Message:   "Event tidak dikenal",
		StopCodes: []string{"UNKNOWN_EVENT"},
	},

	attendance.ErrScannerClosed: {
		Message:   "Pemindai belum dibuka",
		StopCodes: []string{"SCANNER_CLOSED"},
	},
	attendance.ErrNoVerseDialog: {
		Message:   "Tidak ada peserta yang sedang dicatat",
		StopCodes: []string{"NO_VERSE_DIALOG"},
	},
	qrscan.ErrSessionSpent: {
		Message:   "Kode sudah dipindai, buka pemindai kembali",
		StopCodes: []string{"SCAN_SPENT"},
	},
	qrscan.ErrSessionClosed: {
		Message:   "Pemindai sudah ditutup",
		StopCodes: []string{"SCANNER_CLOSED"},
	},
	query.ErrStale: {
		Message:   "Data sudah diperbarui oleh permintaan lain",
		StopCodes: []string{"STALE"},
	},
	status.ErrInvalidTransition: {
		Message:   "Perubahan status tidak diizinkan",
		StopCodes: []string{"INVALID_TRANSITION"},
	},
	ErrNotPrintable: {
		Message:   "Kartu belum dapat dicetak",
		StopCodes: []string{"NOT_PRINTABLE"},
	},
	status.ErrUnknownStatus: {
		Message:   "Status tidak dikenal",
		StopCodes: []string{"UNKNOWN_STATUS"},
	},

	qrscan.ErrImageTooLarge: {
		Message:   "Gambar terlalu besar",
		StopCodes: []string{"IMAGE_TOO_LARGE"},
	},
	qrscan.ErrNoCode: {
		Message:   "QR code tidak terbaca",
		StopCodes: []string{"NO_CODE"},
	},
	qrscan.ErrImageInput: {
		Message:   "Pemindai ini hanya menerima input manual",
		StopCodes: []string{"MANUAL_ONLY"},
	},

	ErrInvalidRequest: {
		Message:   "Permintaan tidak valid",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrInvalidParameter: {
		Message:   "Parameter tidak valid",
		StopCodes: []string{"INVALID_PARAMETER"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "Terjadi kesalahan pada server",
	},
	shollu.ErrDecode: {
		Message: "Respon server Shollu tidak dikenali",
	},
	shollu.ErrTransport: {
		Message: "Server Shollu tidak dapat dihubungi. Coba lagi.",
	},
	ErrMailDisabled: {
		Message: "Pengiriman email ke percetakan belum dikonfigurasi",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	if code, ok := errorStatusMap[err]; ok {
		return code
	}

	for knownErr, code := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return code
		}
	}

	// Backend business failures keep their status when it is a client error.
	var apiErr *shollu.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}

	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return info
		}
	}

	// The backend message is meant for the user.
	if msg := shollu.MessageOf(err); msg != "" {
		return ErrorInfo{Message: msg}
	}

	if GetErrorStatus(err) >= 500 {
		return ErrorInfo{Message: "Terjadi kesalahan pada server"}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}

// GetErrorStopCodes returns stop codes for an error
func GetErrorStopCodes(err error) []string {
	return GetErrorInfo(err).StopCodes
}
