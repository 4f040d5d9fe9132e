package linktoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer   = "timetable-skill"
	audience = "timetable-form"
)

// ErrInvalidToken is returned for missing, forged, expired or mismatched tokens.
var ErrInvalidToken = errors.New("invalid form link token")

// Signer issues and validates the tokens appended to registration form links.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer. An empty secret yields a disabled signer
// whose links carry no token.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether links are signed and verified.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Issue returns a token bound to uid and its expiry.
func (s *Signer) Issue(uid string) (string, time.Time, error) {
	if uid == "" {
		return "", time.Time{}, fmt.Errorf("uid required")
	}
	if !s.Enabled() {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   uid,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign form link: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks that token is valid and was issued for uid.
func (s *Signer) Verify(token, uid string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != uid {
		return fmt.Errorf("%w: issued for another timetable", ErrInvalidToken)
	}
	return nil
}
