package qrtoken

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const artifactSize = 300

// RenderDataURL encodes the check-in deep link as a PNG QR code wrapped
// in a base64 data URL, ready to drop into an <img> tag.
func RenderDataURL(checkInURL string) (string, error) {
	png, err := qrcode.Encode(checkInURL, qrcode.Medium, artifactSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
