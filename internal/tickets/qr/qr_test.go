package qr

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEncryptedQRProducesPNG(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	png, err := gen.GenerateEncryptedQR(TokenPayload{
		TicketID:  "ticket-1",
		EventID:   "event-1",
		ScanToken: "token-1",
		IssuedAt:  time.Now(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestGenerateEncryptedQRDistinctPerTicket(t *testing.T) {
	gen := NewQRGenerator("test-secret")
	issued := time.Now()

	first, err := gen.GenerateEncryptedQR(TokenPayload{TicketID: "ticket-1", EventID: "event-1", ScanToken: "token-1", IssuedAt: issued})
	require.NoError(t, err)
	second, err := gen.GenerateEncryptedQR(TokenPayload{TicketID: "ticket-2", EventID: "event-1", ScanToken: "token-2", IssuedAt: issued})
	require.NoError(t, err)

	assert.False(t, bytes.Equal(first, second))
}

func TestEncryptAESHidesPlaintext(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	ciphertext, err := encryptAES([]byte("payload"), gen.secret)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "payload")
	assert.Greater(t, len(ciphertext), len("payload"))
}
