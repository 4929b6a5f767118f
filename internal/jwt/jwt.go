package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
	ErrEmptySecret      = errors.New("signing secret is empty")
)

const sessionAudience = "shollu-partner-session"

var tokenSignatureAlg = jwt.SigningMethodHS256

// SessionClaim is carried in the browser cookie. It only points at the
// server side session, the upstream bearer token never leaves the server.
type SessionClaim struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a cookie token for the given session.
func (s *Signer) Issue(sessionID, role string) (string, error) {
	now := time.Now().UTC()
	claim := SessionClaim{
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return s.generate(claim)
}

func (s *Signer) Decode(tokenString string) (*SessionClaim, error) {
	return decodeJWT(s, tokenString, &SessionClaim{}, jwt.WithAudience(sessionAudience))
}

func (s *Signer) generate(claims jwt.Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrEmptySecret
	}
	token := jwt.NewWithClaims(tokenSignatureAlg, claims)
	return token.SignedString(s.secret)
}

func decodeJWT[T jwt.Claims](s *Signer, tokenString string, claimsType T, opts ...jwt.ParserOption) (T, error) {
	var zero T

	opts = append(opts, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))
	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)

	if err != nil {
		return zero, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}
