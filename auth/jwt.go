package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gaborage/routekit/logger"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

const clockSkew = 2 * time.Minute

type capabilityClaims struct {
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

// JWTChecker validates HS256 bearer tokens and reads granted capabilities
// from their "caps" claim.
type JWTChecker struct {
	secret []byte
	issuer string
	now    func() time.Time
	log    logger.Logger
}

// NewJWTChecker creates a checker. issuer may be empty to accept any issuer.
func NewJWTChecker(secret, issuer string, log logger.Logger) (*JWTChecker, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &JWTChecker{secret: []byte(secret), issuer: issuer, now: time.Now, log: log}, nil
}

// Check authenticates the bearer token and verifies capability. An empty
// capability only requires authentication.
func (c *JWTChecker) Check(ctx context.Context, authorization, capability string) (*Principal, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil, ErrUnauthenticated
	}

	p, err := c.parse(token)
	if err != nil {
		c.log.WithContext(ctx).Debug().Err(err).Msg("Bearer token rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if capability != "" && !p.Has(capability) {
		return p, fmt.Errorf("%w: %s", ErrForbidden, capability)
	}
	return p, nil
}

func (c *JWTChecker) parse(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &capabilityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*capabilityClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid claims")
	}
	return &Principal{Subject: claims.Subject, Capabilities: claims.Capabilities}, nil
}

// Sign issues a token for subject carrying capabilities, valid for ttl.
func (c *JWTChecker) Sign(subject string, capabilities []string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := capabilityClaims{
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
