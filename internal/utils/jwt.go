// Package utils holds the token and password helpers used by the auth
// service.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every token that must not be honoured.
// Callers map it to 401 without looking further.  The wrapped reasons
// below exist only so the rejection can be logged precisely.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: signature", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
)

// TokenConfig carries the signing material loaded once at startup.
type TokenConfig struct {
	Secret    []byte
	Algorithm string        // HS256, HS384 or HS512
	TTL       time.Duration // lifetime of an access token
}

// Claims is the payload carried by an access token.  Subject holds the
// principal's email.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SigningMethod maps an algorithm name onto an HMAC signing method.
func SigningMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
}

// IssueToken builds and signs a JWT for subject and role.  The token
// carries sub, role, exp, iat and a random jti so that two logins within
// the same second still produce distinct token strings.
func IssueToken(cfg TokenConfig, subject, role string) (AccessToken, error) {
	method, err := SigningMethod(cfg.Algorithm)
	if err != nil {
		return AccessToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(cfg.TTL)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(cfg.Secret)
	if err != nil {
		return AccessToken{}, err
	}
	// exp is truncated to whole seconds on the wire; report what the
	// client will actually see.
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time.UTC()}, nil
}

// DecodeToken verifies the algorithm, the signature and the expiry of raw
// and returns its claims.  Every failure wraps ErrInvalidToken.
func DecodeToken(cfg TokenConfig, raw string) (*Claims, error) {
	method, err := SigningMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrTokenMalformed)
	}
	return claims, nil
}

// TokenExpiry extracts exp from raw without verifying anything.  Logout
// uses it to size the revocation entry; it is never used to trust a token.
func TokenExpiry(raw string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.
// Revocation entries are keyed by it so raw tokens are never stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
