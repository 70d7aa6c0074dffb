// Package auth verifies the bearer tokens minted by the authentication
// provider and turns them into shoppers.
package auth

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xenking/storefront-checkout/internal/domain/user"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the JWT payload. The subject is the shopper's uid.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Config configures Tokens.
type Config struct {
	Secret string
	Issuer string
	// TTL is the lifetime of minted tokens.
	TTL time.Duration
}

// Tokens mints and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens validates cfg and returns Tokens.
func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Mint issues a token for u. It is used by development tooling; production
// tokens come from the authentication provider.
func (t *Tokens) Mint(u user.User) (string, error) {
	if u.UID == "" {
		return "", errors.New("uid is required")
	}
	now := t.now()
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign jwt")
	}
	return signed, nil
}

// Parse verifies token and returns the shopper it names. Every failure is
// reported as user.ErrUnauthenticated wrapping the cause.
func (t *Tokens) Parse(token string) (user.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return user.User{}, errors.Wrap(user.ErrUnauthenticated, err.Error())
	}
	if claims.Subject == "" {
		return user.User{}, errors.Wrap(user.ErrUnauthenticated, "token has no subject")
	}
	return user.User{UID: claims.Subject, Email: claims.Email}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
