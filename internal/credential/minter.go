// Package credential mints and verifies the scannable payload printed on
// each ticket.
//
// A payload is "TKT1." followed by the unpadded base64url encoding of
// CBOR(claims) || MAC, where MAC is the first 16 bytes of a BLAKE3 keyed hash
// over the CBOR bytes. The key is derived from the configured secret with
// HKDF-SHA256, so rotating the secret invalidates every outstanding ticket.
package credential

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"event-ticketing-core/internal/models"
)

const (
	// Prefix marks the payload format version
	Prefix = "TKT1."

	macSize   = 16
	nonceSize = 16
	keySize   = 32
)

var hkdfInfo = []byte("event-ticketing.credential.v1")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("credential: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("credential: CBOR decoder initialization failed: " + err.Error())
	}
}

// Claims binds a ticket to its event, buyer and order
type Claims struct {
	EventID  int
	UserID   int
	OrderID  int
	Sequence int
	IssuedAt time.Time
	Nonce    [nonceSize]byte
}

// wireClaims is the CBOR layout. Integer keys keep the payload small enough
// for a low-density QR code.
type wireClaims struct {
	EventID  int    `cbor:"1,keyasint"`
	UserID   int    `cbor:"2,keyasint"`
	OrderID  int    `cbor:"3,keyasint"`
	Sequence int    `cbor:"4,keyasint"`
	IssuedAt int64  `cbor:"5,keyasint"` // unix microseconds
	Nonce    []byte `cbor:"6,keyasint"`
}

// Credential is a minted payload together with the claims it encodes
type Credential struct {
	Payload string
	Claims  Claims
}

// Issued is a credential with its rendered QR image
type Issued struct {
	Credential
	PNG []byte
}

// Minter mints, renders and verifies ticket credentials
type Minter struct {
	key    [keySize]byte
	qrSize int
}

// NewMinter derives the signing key from secret
func NewMinter(secret string, qrSize int) (*Minter, error) {
	if secret == "" {
		return nil, errors.New("credential secret is required")
	}
	if qrSize <= 0 {
		qrSize = 256
	}

	m := &Minter{qrSize: qrSize}
	reader := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(reader, m.key[:]); err != nil {
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return m, nil
}

// Mint produces a unique payload for one ticket. Two calls with identical
// claims still differ in their nonce.
func (m *Minter) Mint(claims Claims) (*Credential, error) {
	if claims.EventID <= 0 || claims.UserID <= 0 || claims.OrderID <= 0 || claims.Sequence <= 0 {
		return nil, fmt.Errorf("%w: credential claims must reference event, user, order and sequence", models.ErrValidation)
	}
	if claims.IssuedAt.IsZero() {
		claims.IssuedAt = time.Now()
	}
	claims.IssuedAt = claims.IssuedAt.UTC().Truncate(time.Microsecond)

	if claims.Nonce == ([nonceSize]byte{}) {
		claims.Nonce = uuid.New()
	}

	body, err := encMode.Marshal(wireClaims{
		EventID:  claims.EventID,
		UserID:   claims.UserID,
		OrderID:  claims.OrderID,
		Sequence: claims.Sequence,
		IssuedAt: claims.IssuedAt.UnixMicro(),
		Nonce:    claims.Nonce[:],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}

	mac, err := m.mac(body)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, len(body)+macSize)
	raw = append(raw, body...)
	raw = append(raw, mac...)

	return &Credential{
		Payload: Prefix + base64.RawURLEncoding.EncodeToString(raw),
		Claims:  claims,
	}, nil
}

// Issue mints a credential and renders its QR image. A render failure is
// returned as an error so the caller can abort issuance.
func (m *Minter) Issue(claims Claims) (*Issued, error) {
	cred, err := m.Mint(claims)
	if err != nil {
		return nil, err
	}

	img, err := m.Render(cred.Payload)
	if err != nil {
		return nil, err
	}

	return &Issued{Credential: *cred, PNG: img}, nil
}

// Decode verifies the MAC and returns the embedded claims
func (m *Minter) Decode(payload string) (*Claims, error) {
	encoded, ok := strings.CutPrefix(strings.TrimSpace(payload), Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: unknown credential format", models.ErrInvalidCredential)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed encoding", models.ErrInvalidCredential)
	}
	if len(raw) <= macSize {
		return nil, fmt.Errorf("%w: payload too short", models.ErrInvalidCredential)
	}

	body, gotMAC := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	wantMAC, err := m.mac(body)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, fmt.Errorf("%w: signature mismatch", models.ErrInvalidCredential)
	}

	var wire wireClaims
	if err := decMode.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: malformed claims", models.ErrInvalidCredential)
	}
	if wire.EventID <= 0 || wire.UserID <= 0 || wire.OrderID <= 0 || wire.Sequence <= 0 || len(wire.Nonce) != nonceSize {
		return nil, fmt.Errorf("%w: incomplete claims", models.ErrInvalidCredential)
	}

	claims := &Claims{
		EventID:  wire.EventID,
		UserID:   wire.UserID,
		OrderID:  wire.OrderID,
		Sequence: wire.Sequence,
		IssuedAt: time.UnixMicro(wire.IssuedAt).UTC(),
	}
	copy(claims.Nonce[:], wire.Nonce)
	return claims, nil
}

// Render encodes payload as a PNG QR code
func (m *Minter) Render(payload string) ([]byte, error) {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(m.qrSize)); err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	return buf.Bytes(), nil
}

func (m *Minter) mac(body []byte) ([]byte, error) {
	hasher, err := blake3.NewKeyed(m.key[:])
	if err != nil {
		return nil, fmt.Errorf("BLAKE3 keyed hash initialization failed: %w", err)
	}
	hasher.Write(body)
	return hasher.Sum(nil)[:macSize], nil
}
