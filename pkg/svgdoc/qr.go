package svgdoc

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrPixelSize is the rendered edge length of the stamp in output pixels.
const qrPixelSize = 80

// StampQR encodes link as a QR code and embeds it as a PNG image in the
// bottom-left corner, so a printed map still points back at its source.
func (d *Document) StampQR(link string) error {
	png, err := qrcode.Encode(link, qrcode.Medium, qrPixelSize*2)
	if err != nil {
		return fmt.Errorf("encode qr for %q: %w", link, err)
	}
	x := 10
	y := d.Height - qrPixelSize - 10
	d.body = append(d.body, fmt.Sprintf(
		"  <image x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" href=\"data:image/png;base64,%s\"/>\n",
		x, y, qrPixelSize, qrPixelSize, base64.StdEncoding.EncodeToString(png)))
	return nil
}
