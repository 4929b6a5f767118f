// Package qrscan turns camera frames or typed text into card codes and
// renders card codes as QR images.
package qrscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"shollu-partner/internal/config"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// CameraDeniedMessage is shown when the browser refuses camera access.
const CameraDeniedMessage = "Tidak dapat mengakses kamera. Pastikan izin kamera sudah diberikan."

var (
	ErrNoCode        = errors.New("no QR code found")
	ErrImageTooLarge = errors.New("image too large")
	ErrImageInput    = errors.New("this scanner accepts typed codes only")
	ErrSessionSpent  = errors.New("scan session already produced a code")
	ErrSessionClosed = errors.New("scan session closed")
)

// Input is one capture attempt: an encoded camera frame, typed text, or both.
// Text wins when present.
type Input struct {
	Image []byte
	Text  string
}

type Capture interface {
	Name() string
	AcceptsImages() bool
	Decode(ctx context.Context, in Input) (string, error)
}

func NewCapture(cfg config.Scanner) (Capture, error) {
	switch cfg.Backend {
	case config.ScannerCamera:
		return &CameraCapture{MaxImageBytes: cfg.MaxImageBytes}, nil
	case config.ScannerManual:
		return ManualCapture{}, nil
	}
	return nil, fmt.Errorf("unknown scanner backend %q", cfg.Backend)
}

// CameraCapture decodes uploaded frames and falls back to typed text.
type CameraCapture struct {
	MaxImageBytes int64
}

func (c *CameraCapture) Name() string        { return config.ScannerCamera }
func (c *CameraCapture) AcceptsImages() bool { return true }

func (c *CameraCapture) Decode(ctx context.Context, in Input) (string, error) {
	if code := strings.TrimSpace(in.Text); code != "" {
		return code, nil
	}
	if len(in.Image) == 0 {
		return "", ErrNoCode
	}
	if c.MaxImageBytes > 0 && int64(len(in.Image)) > c.MaxImageBytes {
		return "", ErrImageTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return DecodeImage(in.Image)
}

type ManualCapture struct{}

func (ManualCapture) Name() string        { return config.ScannerManual }
func (ManualCapture) AcceptsImages() bool { return false }

func (ManualCapture) Decode(_ context.Context, in Input) (string, error) {
	if code := strings.TrimSpace(in.Text); code != "" {
		return code, nil
	}
	if len(in.Image) > 0 {
		return "", ErrImageInput
	}
	return "", ErrNoCode
}

// DecodeImage finds a QR code in a PNG or JPEG image.
func DecodeImage(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("prepare bitmap: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", ErrNoCode
	}
	return strings.TrimSpace(result.GetText()), nil
}

// EncodePNG renders code as a PNG QR image of size pixels.
func EncodePNG(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = config.QR_IMAGE_SIZE
	}
	return qrcode.Encode(code, qrcode.Medium, size)
}

// ScanSession yields at most one code. After that every Submit fails until
// the owner closes it and opens a new one.
type ScanSession struct {
	capture Capture

	mu     sync.Mutex
	code   string
	spent  bool
	closed bool
}

func NewSession(c Capture) *ScanSession {
	return &ScanSession{capture: c}
}

func (s *ScanSession) Submit(ctx context.Context, in Input) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.spent {
		return "", ErrSessionSpent
	}
	code, err := s.capture.Decode(ctx, in)
	if err != nil {
		return "", err
	}
	s.code = code
	s.spent = true
	return code, nil
}

// Code returns the decoded code, if any.
func (s *ScanSession) Code() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.spent
}

// Close may be called any number of times.
func (s *ScanSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *ScanSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
