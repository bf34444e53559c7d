package service

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

const (
	claimSubject   = "sub"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
)

// hmacTokenCodec implements TokenCodec with HMAC-SHA512 over a fixed header.
type hmacTokenCodec struct {
	signingKey string
	clockSkew  time.Duration
	now        func() time.Time
	header     string
}

// NewTokenCodec creates a TokenCodec signing with signingKey. clockSkew is the tolerated
// amount by which a token's issued-at may be ahead of now. A nil now defaults to time.Now.
func NewTokenCodec(signingKey string, clockSkew time.Duration, now func() time.Time) TokenCodec {
	if now == nil {
		now = time.Now
	}

	header, err := encodeSegment(map[string]any{
		"alg": jwt.SigningMethodHS512.Alg(),
		"typ": "JWT",
	})
	if err != nil {
		// A constant two-field object always marshals
		panic(err)
	}

	return &hmacTokenCodec{
		signingKey: signingKey,
		clockSkew:  clockSkew,
		now:        now,
		header:     header,
	}
}

// Encode builds header.payload.signature for the given subject and expiry.
func (c *hmacTokenCodec) Encode(
	subject int64,
	expiresAt time.Time,
	customClaims map[string]string,
) (string, error) {
	if subject < 1 {
		return "", authDomain.ErrInvalidSubject
	}

	issuedAt := c.now().UTC().Unix()
	expiration := expiresAt.UTC().Unix()
	if expiration < issuedAt {
		return "", authDomain.ErrInvalidExpiry
	}

	if strings.TrimSpace(c.signingKey) == "" {
		return "", authDomain.ErrSigningKeyMissing
	}

	payload := make(map[string]any, len(customClaims)+3)
	for name, value := range customClaims {
		payload[name] = value
	}
	payload[claimSubject] = subject
	payload[claimIssuedAt] = issuedAt
	payload[claimExpiresAt] = expiration

	payloadSegment, err := encodeSegment(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", authDomain.ErrEncoding, err)
	}

	signingString := c.header + "." + payloadSegment
	signature, err := c.sign(signingString)
	if err != nil {
		return "", err
	}

	return signingString + "." + signature, nil
}

// Decode verifies the header and signature of token before trusting its payload.
func (c *hmacTokenCodec) Decode(token string) (*authDomain.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, authDomain.ErrEmptyToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, authDomain.ErrMalformedStructure
	}

	if parts[0] != c.header {
		return nil, authDomain.ErrHeaderMismatch
	}

	if strings.TrimSpace(c.signingKey) == "" {
		return nil, authDomain.ErrSigningKeyMissing
	}

	expected, err := c.sign(parts[0] + "." + parts[1])
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[2])) != 1 {
		return nil, authDomain.ErrSignatureMismatch
	}

	raw, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, authDomain.ErrPayloadInvalid
	}

	return c.parseClaims(raw)
}

func (c *hmacTokenCodec) sign(signingString string) (string, error) {
	signature, err := jwt.SigningMethodHS512.Sign(signingString, []byte(c.signingKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", authDomain.ErrEncoding, err)
	}
	return base64URLEncode(signature), nil
}

func (c *hmacTokenCodec) parseClaims(raw []byte) (*authDomain.Claims, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil || payload == nil {
		return nil, authDomain.ErrPayloadInvalid
	}

	subject, ok := integerClaim(payload, claimSubject)
	if !ok || subject < 1 {
		return nil, authDomain.ErrPayloadInvalid
	}

	issuedAt, ok := integerClaim(payload, claimIssuedAt)
	if !ok || issuedAt < 1 {
		return nil, authDomain.ErrPayloadInvalid
	}
	if time.Unix(issuedAt, 0).After(c.now().Add(c.clockSkew)) {
		return nil, authDomain.ErrPayloadInvalid
	}

	expiration, ok := integerClaim(payload, claimExpiresAt)
	if !ok || expiration < 1 || expiration < issuedAt {
		return nil, authDomain.ErrPayloadInvalid
	}

	custom := make(map[string]string, len(payload))
	for name, value := range payload {
		switch name {
		case claimSubject, claimIssuedAt, claimExpiresAt:
			continue
		}
		s, ok := value.(string)
		if !ok {
			return nil, authDomain.ErrPayloadInvalid
		}
		custom[name] = s
	}

	return &authDomain.Claims{
		Subject:        subject,
		IssuedAt:       time.Unix(issuedAt, 0).UTC(),
		ExpirationTime: time.Unix(expiration, 0).UTC(),
		Custom:         custom,
	}, nil
}

func integerClaim(payload map[string]any, name string) (int64, bool) {
	number, ok := payload[name].(json.Number)
	if !ok {
		return 0, false
	}
	value, err := number.Int64()
	if err != nil {
		return 0, false
	}
	return value, true
}

// encodeSegment marshals v as compact JSON with sorted keys and no HTML escaping,
// then base64url-encodes it without padding.
func encodeSegment(v any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", err
	}
	return base64URLEncode(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// base64URLDecode accepts both padded and unpadded input.
func base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
