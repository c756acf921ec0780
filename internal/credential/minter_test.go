package credential

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing-core/internal/models"
)

func newTestMinter(t *testing.T) *Minter {
	t.Helper()
	m, err := NewMinter("test-secret-that-is-long-enough-1234", 128)
	require.NoError(t, err)
	return m
}

func TestMinter_MintDecode(t *testing.T) {
	m := newTestMinter(t)
	issuedAt := time.Date(2026, 6, 1, 18, 30, 0, 123456789, time.UTC)

	cred, err := m.Mint(Claims{EventID: 7, UserID: 42, OrderID: 1001, Sequence: 3, IssuedAt: issuedAt})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cred.Payload, Prefix))

	claims, err := m.Decode(cred.Payload)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.EventID)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, 1001, claims.OrderID)
	assert.Equal(t, 3, claims.Sequence)
	assert.True(t, claims.IssuedAt.Equal(issuedAt.Truncate(time.Microsecond)))
	assert.Equal(t, cred.Claims.Nonce, claims.Nonce)
}

func TestMinter_Uniqueness(t *testing.T) {
	m := newTestMinter(t)
	issuedAt := time.Now()
	seen := make(map[string]bool)

	// Identical claims, many orders and sequences, same instant
	for order := 1; order <= 20; order++ {
		for seq := 1; seq <= 10; seq++ {
			for repeat := 0; repeat < 2; repeat++ {
				cred, err := m.Mint(Claims{EventID: 1, UserID: 1, OrderID: order, Sequence: seq, IssuedAt: issuedAt})
				require.NoError(t, err)
				require.False(t, seen[cred.Payload], "duplicate credential payload")
				seen[cred.Payload] = true
			}
		}
	}
	assert.Len(t, seen, 400)
}

func TestMinter_DecodeRejectsTampering(t *testing.T) {
	m := newTestMinter(t)
	cred, err := m.Mint(Claims{EventID: 1, UserID: 2, OrderID: 3, Sequence: 1})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(cred.Payload, Prefix))
	require.NoError(t, err)
	raw[2] ^= 0x01
	flipped := Prefix + base64.RawURLEncoding.EncodeToString(raw)

	other, err := NewMinter("a-different-secret-entirely-5678", 128)
	require.NoError(t, err)

	tests := []struct {
		name    string
		minter  *Minter
		payload string
	}{
		{name: "flipped claim byte", minter: m, payload: flipped},
		{name: "wrong key", minter: other, payload: cred.Payload},
		{name: "missing prefix", minter: m, payload: strings.TrimPrefix(cred.Payload, Prefix)},
		{name: "not base64", minter: m, payload: Prefix + "!!!"},
		{name: "too short", minter: m, payload: Prefix + "AAAA"},
		{name: "empty", minter: m, payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.minter.Decode(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidCredential))
		})
	}
}

func TestMinter_MintRejectsIncompleteClaims(t *testing.T) {
	m := newTestMinter(t)

	_, err := m.Mint(Claims{EventID: 1, UserID: 1, OrderID: 1})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestMinter_Issue(t *testing.T) {
	m := newTestMinter(t)

	issued, err := m.Issue(Claims{EventID: 1, UserID: 2, OrderID: 3, Sequence: 4})
	require.NoError(t, err)
	require.NotEmpty(t, issued.PNG)

	img, err := png.Decode(bytes.NewReader(issued.PNG))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestMinter_RenderFailure(t *testing.T) {
	m := newTestMinter(t)

	// Beyond QR version 40 capacity
	_, err := m.Render(strings.Repeat("x", 8000))
	assert.Error(t, err)
}

func TestNewMinter_RequiresSecret(t *testing.T) {
	_, err := NewMinter("", 256)
	assert.Error(t, err)
}
