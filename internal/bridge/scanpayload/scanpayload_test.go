package scanpayload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	encoded, err := Encode("42", "https://verify.example.org/", issuedAt)
	require.NoError(t, err)

	p, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, Version, p.Version)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "https://verify.example.org/api/v1/credentials/42/verify", p.VerifyURL)
	assert.Equal(t, issuedAt, p.IssuedAt)
}

func TestEncodePlaceholderID(t *testing.T) {
	encoded, err := Encode("fbk-abc", "https://verify.example.org", time.Now())
	require.NoError(t, err)

	p, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "fbk-abc", p.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("!!!not-base64!!!")
	assert.Error(t, err)

	_, err = Decode("bm90LWpzb24")
	assert.Error(t, err)
}
