package qrscan

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"shollu-partner/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img, err := EncodePNG("QR-0001", 256)
	require.NoError(t, err)

	code, err := DecodeImage(img)
	require.NoError(t, err)
	assert.Equal(t, "QR-0001", code)
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImageWithoutCode(t *testing.T) {
	_, err := DecodeImage(blankPNG(t))
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestCameraCapture(t *testing.T) {
	c, err := NewCapture(config.Scanner{Backend: config.ScannerCamera, MaxImageBytes: 1 << 20})
	require.NoError(t, err)
	assert.True(t, c.AcceptsImages())

	img, err := EncodePNG("QR-0042", 256)
	require.NoError(t, err)
	code, err := c.Decode(context.Background(), Input{Image: img})
	require.NoError(t, err)
	assert.Equal(t, "QR-0042", code)

	code, err = c.Decode(context.Background(), Input{Text: "  typed  ", Image: img})
	require.NoError(t, err)
	assert.Equal(t, "typed", code)

	_, err = c.Decode(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoCode)

	small := &CameraCapture{MaxImageBytes: 10}
	_, err = small.Decode(context.Background(), Input{Image: img})
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestManualCapture(t *testing.T) {
	c, err := NewCapture(config.Scanner{Backend: config.ScannerManual})
	require.NoError(t, err)
	assert.False(t, c.AcceptsImages())

	code, err := c.Decode(context.Background(), Input{Text: "QR-0003"})
	require.NoError(t, err)
	assert.Equal(t, "QR-0003", code)

	_, err = c.Decode(context.Background(), Input{Image: []byte{1}})
	assert.ErrorIs(t, err, ErrImageInput)

	_, err = NewCapture(config.Scanner{Backend: "laser"})
	assert.Error(t, err)
}

func TestScanSessionEmitsOnce(t *testing.T) {
	s := NewSession(ManualCapture{})

	_, err := s.Submit(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoCode)
	_, spent := s.Code()
	assert.False(t, spent, "a failed attempt does not spend the session")

	code, err := s.Submit(context.Background(), Input{Text: "QR-0001"})
	require.NoError(t, err)
	assert.Equal(t, "QR-0001", code)

	_, err = s.Submit(context.Background(), Input{Text: "QR-0002"})
	assert.ErrorIs(t, err, ErrSessionSpent)

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	_, err = s.Submit(context.Background(), Input{Text: "QR-0003"})
	assert.ErrorIs(t, err, ErrSessionClosed)

	got, _ := s.Code()
	assert.Equal(t, "QR-0001", got)
}
