package sealer

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer(t *testing.T) {
	s, err := New("sealing-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("passport: X1234567")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "X1234567")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "passport: X1234567", opened)

	again, err := s.Seal("passport: X1234567")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestSealer_EmptyPlaintext(t *testing.T) {
	s, err := New("sealing-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "", opened)
}

func TestSealer_OpenRejects(t *testing.T) {
	s, err := New("sealing-secret")
	require.NoError(t, err)
	other, err := New("another-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("hello")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	flipped := base64.StdEncoding.EncodeToString(raw)

	for name, input := range map[string]string{
		"not base64":   "%%%",
		"too short":    base64.StdEncoding.EncodeToString([]byte("tiny")),
		"flipped bit":  flipped,
		"empty string": "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(input)
			assert.ErrorIs(t, err, ErrOpen)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		_, err := other.Open(sealed)
		assert.ErrorIs(t, err, ErrOpen)
	})
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
