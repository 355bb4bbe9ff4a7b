// Package voucher renders the store-credit voucher of an exchange for a
// thermal printer, with a QR code of the exchange id.
package voucher

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

const (
	esc byte = 0x1B
	gs  byte = 0x1D
	nl  byte = 0x0A
)

const (
	lineWidth = 42
	qrPixels  = 256
)

type Voucher struct {
	ExchangeID  string
	Content     string
	StoreCredit float64
	IssuedAt    time.Time
}

type Rendered struct {
	ESCPOS []byte `json:"escpos"`
	QRCode []byte `json:"qr_png"`
	Text   string `json:"text"`
}

func Render(v Voucher) (Rendered, error) {
	if strings.TrimSpace(v.ExchangeID) == "" {
		return Rendered{}, fmt.Errorf("voucher: exchange id is required")
	}

	png, err := qrcode.Encode(v.ExchangeID, qrcode.Medium, qrPixels)
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr, err := qrcode.New(v.ExchangeID, qrcode.Medium)
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to generate QR code: %w", err)
	}

	text := plainText(v)
	p := &printer{}
	p.init()
	p.align(1)
	p.emphasize(true)
	p.writeLine("VALE-TROCA / STORE CREDIT")
	p.emphasize(false)
	p.align(0)
	p.write(text)
	p.align(1)
	p.raster(qr.Bitmap())
	p.align(0)
	p.cut()

	return Rendered{ESCPOS: p.buf.Bytes(), QRCode: png, Text: text}, nil
}

func plainText(v Voucher) string {
	var b strings.Builder
	sep := strings.Repeat("-", lineWidth)
	b.WriteString(sep + "\n")
	fmt.Fprintf(&b, "Exchange: %s\n", v.ExchangeID)
	if !v.IssuedAt.IsZero() {
		fmt.Fprintf(&b, "Issued:   %s\n", v.IssuedAt.Format("2006-01-02 15:04"))
	}
	if v.StoreCredit > 0 {
		fmt.Fprintf(&b, "Credit:   %s\n", money.Format(v.StoreCredit))
	}
	if content := strings.TrimSpace(v.Content); content != "" {
		b.WriteString(sep + "\n")
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString(sep + "\n")
	return b.String()
}

type printer struct {
	buf bytes.Buffer
}

func (p *printer) init() {
	p.buf.Write([]byte{esc, '@'})
	p.buf.Write([]byte{esc, 't', 2})
}

func (p *printer) align(a byte) {
	p.buf.Write([]byte{esc, 'a', a})
}

func (p *printer) emphasize(on bool) {
	var e byte
	if on {
		e = 1
	}
	p.buf.Write([]byte{esc, 'E', e})
}

func (p *printer) write(text string) {
	p.buf.WriteString(toASCII(text))
}

func (p *printer) writeLine(text string) {
	p.write(text)
	p.buf.WriteByte(nl)
}

func (p *printer) cut() {
	p.buf.Write([]byte{nl, nl, nl})
	p.buf.Write([]byte{gs, 'V', 66, 0})
}

// raster prints a monochrome bitmap with GS v 0. true means a dark module.
func (p *printer) raster(bitmap [][]bool) {
	height := len(bitmap)
	if height == 0 {
		return
	}
	width := len(bitmap[0])
	widthBytes := (width + 7) / 8

	p.buf.WriteByte(nl)
	p.buf.Write([]byte{gs, 'v', '0', 0,
		byte(widthBytes % 256), byte(widthBytes / 256),
		byte(height % 256), byte(height / 256),
	})
	for _, row := range bitmap {
		for x := 0; x < width; x += 8 {
			var b byte
			for bit := 0; bit < 8; bit++ {
				if px := x + bit; px < len(row) && row[px] {
					b |= 1 << uint(7-bit)
				}
			}
			p.buf.WriteByte(b)
		}
	}
	p.buf.WriteByte(nl)
}

var replacements = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ã': 'a', 'Á': 'A', 'À': 'A', 'Â': 'A', 'Ã': 'A',
	'é': 'e', 'ê': 'e', 'É': 'E', 'Ê': 'E',
	'í': 'i', 'Í': 'I',
	'ó': 'o', 'ô': 'o', 'õ': 'o', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O',
	'ú': 'u', 'ü': 'u', 'Ú': 'U', 'Ü': 'U',
	'ç': 'c', 'Ç': 'C', 'ñ': 'n', 'Ñ': 'N',
	'º': 'o', 'ª': 'a',
}

// toASCII folds accents for printers without an extended code page.
func toASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || (r >= 32 && r < 127):
			b.WriteRune(r)
		case replacements[r] != 0:
			b.WriteRune(replacements[r])
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
