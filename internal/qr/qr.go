// Package qr draws QR codes for terminals.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Render encodes content as a QR code drawn with Unicode half blocks, two
// modules per character cell. Every line starts with indent.
func Render(content, indent string) (string, error) {
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	code.DisableBorder = false

	bitmap := code.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString(indent)
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String(), nil
}
