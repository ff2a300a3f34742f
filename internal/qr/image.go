package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// defaultImageSize matches the 200px canvas the customer app renders.
const defaultImageSize = 200

// RenderPNG renders an encoded payload string into a scannable PNG image.
// size <= 0 falls back to the default.
func RenderPNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultImageSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: render png: %w", err)
	}
	return png, nil
}
