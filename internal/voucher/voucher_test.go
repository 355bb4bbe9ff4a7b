package voucher

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r, err := Render(Voucher{
		ExchangeID:  "ex-42",
		Content:     "Válido por 90 dias\nTroca nº 42",
		StoreCredit: 40,
		IssuedAt:    time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(r.ESCPOS, []byte{0x1B, '@'}))
	assert.True(t, bytes.HasSuffix(r.ESCPOS, []byte{0x1D, 'V', 66, 0}))
	assert.True(t, bytes.Contains(r.ESCPOS, []byte{0x1D, 'v', '0', 0}))
	assert.True(t, bytes.Contains(r.ESCPOS, []byte("Valido por 90 dias")))
	assert.True(t, bytes.HasPrefix(r.QRCode, []byte("\x89PNG")))
	assert.Contains(t, r.Text, "Credit:   40.00")
	assert.Contains(t, r.Text, "Issued:   2026-04-02 14:30")
}

func TestRenderRequiresExchangeID(t *testing.T) {
	_, err := Render(Voucher{Content: "x"})
	assert.Error(t, err)
}

func TestToASCII(t *testing.T) {
	assert.Equal(t, "Cancao nao e acao", toASCII("Canção não é ação"))
	assert.Equal(t, "a b", toASCII("a\tb"))
}
