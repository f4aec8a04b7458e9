package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope values carried in the scope claim. A full-access token carries no
// scope; a temporary token issued mid-login carries ScopeTwoFA and is only
// accepted by the 2FA completion endpoint.
const (
	ScopeTwoFA = "2fa"
)

// Parse error sentinels. Callers branch on these to map token failures to
// their own error taxonomy.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

// TokenGenerator interface defines methods for token operations
type TokenGenerator interface {
	// GenerateToken signs a token for the given subject with the given expiry,
	// role and optional scope
	GenerateToken(subject string, expiry time.Duration, role string, scope string) (string, time.Time, error)

	// ParseToken parses and validates a token string
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims struct for JWT claims
type Claims struct {
	Role  string `json:"role,omitempty"`
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator implements the TokenGenerator interface with HS256
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken creates a new signed token for the given subject
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration, role string, scope string) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role:  role,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign JWT claims", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses a token string and validates signature, expiry, issuer
// and audience. Failures are mapped to the package sentinels so expired and
// tampered tokens are distinguishable.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.Issuer),
		jwt.WithAudience(g.Audience),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
