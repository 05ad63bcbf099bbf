package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered image width in pixels.
const DefaultSize = 300

// Renderer turns a URL into an image. Implementations must be stateless.
type Renderer interface {
	Render(url string, size int) ([]byte, error)
}

// PNGRenderer renders QR codes as PNG images.
type PNGRenderer struct {
	Level qrcode.RecoveryLevel
}

// NewPNGRenderer returns a renderer with medium error correction, which
// survives a printed code being slightly creased or smudged.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Level: qrcode.Medium}
}

func (r *PNGRenderer) Render(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty content")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(url, r.Level, size)
}

// DataURL encodes a PNG as a data: URL suitable for an <img> src.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
