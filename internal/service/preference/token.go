package preference

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// TokenClaims is the payload carried inside an unsubscribe token.
type TokenClaims struct {
	Recipient string
	TenantID  string
	Scenario  *domain.Scenario // nil opts out of all mail from the tenant
	IssuedAt  time.Time
}

// TokenCodec mints and verifies signed unsubscribe tokens. Tokens are
// self-contained: the payload travels base64-encoded next to an HMAC-SHA256
// signature, so redemption needs no server-side state from send time.
type TokenCodec struct {
	key []byte
}

// NewTokenCodec creates a codec signing with the given secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{key: []byte(secret)}
}

// Encode mints a token for the given claims.
func (c *TokenCodec) Encode(claims TokenClaims) string {
	scenario := ""
	if claims.Scenario != nil {
		scenario = string(*claims.Scenario)
	}
	data := fmt.Sprintf("%s|%s|%s|%d", claims.Recipient, claims.TenantID, scenario, claims.IssuedAt.Unix())
	encoded := base64.URLEncoding.EncodeToString([]byte(data))
	return encoded + "." + c.sign(data)
}

// Decode verifies a token and returns its claims. Any malformed or
// tampered token yields ErrTokenInvalid.
func (c *TokenCodec) Decode(token string) (TokenClaims, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok {
		return TokenClaims{}, ErrTokenInvalid
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return TokenClaims{}, ErrTokenInvalid
	}

	data := string(decoded)
	if !c.verify(data, signature) {
		return TokenClaims{}, ErrTokenInvalid
	}

	parts := strings.Split(data, "|")
	if len(parts) != 4 {
		return TokenClaims{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return TokenClaims{}, ErrTokenInvalid
	}

	claims := TokenClaims{
		Recipient: parts[0],
		TenantID:  parts[1],
		IssuedAt:  time.Unix(unix, 0).UTC(),
	}
	if parts[2] != "" {
		sc := domain.Scenario(parts[2])
		if !sc.Valid() {
			return TokenClaims{}, ErrTokenInvalid
		}
		claims.Scenario = &sc
	}
	return claims, nil
}

// sign creates an HMAC signature over the payload.
func (c *TokenCodec) sign(data string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// verify checks an HMAC signature in constant time.
func (c *TokenCodec) verify(data, signature string) bool {
	expected := c.sign(data)
	return hmac.Equal([]byte(expected), []byte(signature))
}
