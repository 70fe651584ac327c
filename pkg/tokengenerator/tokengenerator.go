package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use values carried in the token_use claim
const (
	AccessTokenUse  = "access"
	RefreshTokenUse = "refresh"
)

// ErrWrongTokenUse is returned when a credential of one use is presented as the other
var ErrWrongTokenUse = errors.New("token use mismatch")

// TokenGenerator signs and parses credentials
type TokenGenerator interface {
	// GenerateToken signs a credential for subject carrying jti and token use
	GenerateToken(subject, jti, tokenUse string, expiry time.Duration) (string, time.Time, error)

	// ParseToken verifies signature, expiry, issuer and audience and returns the claims
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims struct for JWT claims. RegisteredClaims.ID is the session jti and
// RegisteredClaims.Subject is the user id.
type Claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator implements the TokenGenerator interface with HS256
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	now      func() time.Time
}

// GeneratorOption configures a JwtTokenGenerator
type GeneratorOption func(*JwtTokenGenerator)

// WithClock sets the clock used for iat/exp and for validation
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *JwtTokenGenerator) {
		g.now = now
	}
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string, opts ...GeneratorOption) *JwtTokenGenerator {
	g := &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateToken creates a new signed token
func (g *JwtTokenGenerator) GenerateToken(subject, jti, tokenUse string, expiry time.Duration) (string, time.Time, error) {
	now := g.now().UTC()
	claims := Claims{
		TokenUse: tokenUse,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        jti,
		},
	}
	if g.Audience != "" {
		claims.Audience = jwt.ClaimStrings{g.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign JWT", "jti", jti, "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	}
	if g.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.Issuer))
	}
	if g.Audience != "" {
		opts = append(opts, jwt.WithAudience(g.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("failed to parse token: invalid")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("failed to parse token: missing jti or subject")
	}
	return claims, nil
}
