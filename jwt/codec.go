package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/localizekit/authgate/apperr"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Token uses stamped into the "use" claim so an access token is never
// accepted where a refresh token is expected, and vice versa.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// ReasonExpired is the InvalidToken reason reported for expired tokens.
const ReasonExpired = "jwt expired"

// Config configures a Codec.
//
// HS256 signs and verifies with Secret. Ed25519 signs with PrivateKey and
// verifies with PublicKey; a verify-only codec may omit PrivateKey. Keys are
// raw bytes or PEM.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Use           string
	Issuer        string
	// Now overrides the wall clock. Nil uses time.Now.
	Now func() time.Time
}

// Codec signs and verifies session tokens. A Codec holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	method  SigningMethod
	signKey any
	verKey  any
	use     string
	issuer  string
	now     func() time.Time
}

type tokenClaims struct {
	Email  *string `json:"email,omitempty"`
	Plan   *string `json:"plan,omitempty"`
	TeamID *string `json:"teamId,omitempty"`
	Use    string  `json:"use,omitempty"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	c := &Codec{
		method: cfg.SigningMethod,
		use:    strings.TrimSpace(cfg.Use),
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    cfg.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
		secret := append([]byte(nil), cfg.Secret...)
		c.signKey = secret
		c.verKey = secret
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
			c.verKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verKey = pub
		}
		if c.verKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	return c, nil
}

// Use reports the token use this codec stamps and enforces.
func (c *Codec) Use() string {
	return c.use
}

// Sign produces a token for claims expiring ttl from now. The signature
// covers claims, iat and exp only, so equal inputs at the same instant yield
// equal tokens. A negative ttl yields an already expired token.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	if c.signKey == nil {
		return "", errors.New("codec has no signing key")
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	now := c.now()
	tc := tokenClaims{
		Email:  claims.Email,
		Plan:   claims.Plan,
		TeamID: claims.TeamID,
		Use:    c.use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(c.signingMethod(), tc)
	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and payload shape. Every failure is an
// apperr InvalidToken; the reason distinguishes expiry, bad signatures and
// structural problems.
func (c *Codec) Verify(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperr.InvalidToken("token is empty")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signingMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parser := jwt.NewParser(options...)
	var tc tokenClaims
	parsed, err := parser.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.signingMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.verKey, nil
	})
	if err != nil {
		return Claims{}, apperr.InvalidTokenCause(verifyReason(err), err)
	}
	if !parsed.Valid {
		return Claims{}, apperr.InvalidToken("token is invalid")
	}
	if c.use != "" && tc.Use != c.use {
		return Claims{}, apperr.InvalidToken("token use mismatch")
	}

	claims := Claims{
		Subject: tc.Subject,
		Email:   tc.Email,
		Plan:    tc.Plan,
		TeamID:  tc.TeamID,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	if err := claims.Validate(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable token"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "token not active yet"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid issuer"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing required claim"
	default:
		return err.Error()
	}
}

// Validate enforces the structural rules for a claims payload: a subject is
// required and an email, when set, must be a bare address.
func (c Claims) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return apperr.InvalidToken("missing subject")
	}
	if c.Email != nil && *c.Email != "" {
		addr, err := mail.ParseAddress(*c.Email)
		if err != nil || addr.Address != *c.Email {
			return apperr.InvalidToken("malformed email")
		}
	}
	return nil
}

func (c *Codec) signingMethod() jwt.SigningMethod {
	switch c.method {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
