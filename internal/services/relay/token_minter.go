package relay

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"github.com/relaypay/gateway-bridge/internal/domain"
)

// SignKeySize is the required signing key length. The same key drives
// both the AES-256-CBC encryption of the business secret and the HS512
// signature over the token.
const SignKeySize = 32

const ivSize = aes.BlockSize

// SecureBlock carries the encrypted business secret inside the token
// payload, both halves base64-encoded.
type SecureBlock struct {
	EncryptedData string `json:"encrypted_data"`
	IVValue       string `json:"iv_value"`
}

// CallbackPayload is the claim set relayed to the relying party. The
// same shape is used for the JSON body of the delivery call.
type CallbackPayload struct {
	Status   domain.NormalizedStatus `json:"status"`
	Reason   *string                 `json:"reason,omitempty"`
	Currency string                  `json:"currency"`
	Amount   int64                   `json:"amount"`
}

// TokenMinter builds the signed, partially-encrypted bearer token
// delivered to the relying-party callback endpoint. It only mints;
// verification is the relying party's side of the contract, which is
// why the field names and encodings here are wire-frozen.
type TokenMinter struct {
	signKey  []byte
	ivSource io.Reader
}

// NewTokenMinter creates a minter with a cryptographically random IV
// source. signKey must be exactly 32 bytes.
func NewTokenMinter(signKey []byte) (*TokenMinter, error) {
	return NewTokenMinterWithIVSource(signKey, rand.Reader)
}

// NewTokenMinterWithIVSource creates a minter reading IVs from the
// given source. Only tests should supply a deterministic source; an IV
// must never repeat across production invocations.
func NewTokenMinterWithIVSource(signKey []byte, ivSource io.Reader) (*TokenMinter, error) {
	if len(signKey) != SignKeySize {
		return nil, fmt.Errorf("sign key must be %d bytes, got %d", SignKeySize, len(signKey))
	}
	return &TokenMinter{signKey: signKey, ivSource: ivSource}, nil
}

// Mint builds the compact token: HS512-signed base64url JSON segments
// carrying the payload plus a secure block with the business secret
// encrypted under the signing key. A fresh 16-byte IV is drawn per
// invocation.
func (m *TokenMinter) Mint(payload CallbackPayload, businessSecret string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(m.ivSource, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	ciphertext, err := m.encryptSecret([]byte(businessSecret), iv)
	if err != nil {
		return "", fmt.Errorf("encrypt business secret: %w", err)
	}

	claims := jwt.MapClaims{
		"status":   payload.Status,
		"currency": payload.Currency,
		"amount":   payload.Amount,
		"secure": SecureBlock{
			EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
			IVValue:       base64.StdEncoding.EncodeToString(iv),
		},
	}
	if payload.Reason != nil {
		claims["reason"] = *payload.Reason
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// encryptSecret applies AES-256-CBC with PKCS#7 padding.
func (m *TokenMinter) encryptSecret(plaintext, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(m.signKey)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}
