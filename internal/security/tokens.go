package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for any token that fails decoding: malformed input,
	// signature mismatch, wrong algorithm, missing claims, or a lapsed expiration.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedAlgorithm is returned when the configured algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Claims is the identity carried by a bearer token.
type Claims struct {
	ID        string // jti; unique per issuance
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the JWT payload: user_id and username plus the registered claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Codec issues and decodes signed, expiring bearer tokens. Keys, algorithm and TTL are
// fixed at construction; a Codec is safe for concurrent use.
type Codec struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	ttl       time.Duration
	nowF      func() time.Time
}

// NewHMACCodec returns a Codec that signs with the shared secret using HS256, HS384 or HS512.
func NewHMACCodec(secret []byte, alg string, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("security: signing secret is empty")
	}
	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return newCodec(method, secret, secret, ttl)
}

// NewKeyPairCodec returns a Codec that signs with privateKey (RS256 for RSA, ES256 for ECDSA P-256)
// and verifies with publicKey.
func NewKeyPairCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, ttl time.Duration) (*Codec, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrInvalidKey
	}
	var method jwt.SigningMethod
	switch KeyAlg(privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return nil, ErrUnsupportedAlgorithm
	}
	if KeyAlg(publicKey) != method.Alg() {
		return nil, ErrInvalidKey
	}
	return newCodec(method, privateKey, publicKey, ttl)
}

func newCodec(method jwt.SigningMethod, signKey, verifyKey interface{}, ttl time.Duration) (*Codec, error) {
	if ttl <= 0 {
		return nil, errors.New("security: token TTL must be positive")
	}
	return &Codec{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		ttl:       ttl,
		nowF:      time.Now,
	}, nil
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.nowF = now
	return &cp
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Algorithm returns the JWT alg identifier (e.g. "HS256").
func (c *Codec) Algorithm() string { return c.method.Alg() }

// Issue builds claims {userID, username, iat=now, exp=now+TTL}, signs them and returns the
// serialized token together with the claims it carries. Timestamps are truncated to
// whole seconds, the precision of the encoded claims.
func (c *Codec) Issue(userID, username string) (string, *Claims, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", nil, err
	}
	now := c.nowF().UTC().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Username: username,
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", nil, err
	}
	return token, &Claims{
		ID:        jti,
		UserID:    userID,
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode verifies the token's signature, algorithm and structure and checks that its
// expiration is strictly in the future. A token whose exp equals the current second is expired.
// Every failure returns ErrInvalidToken.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowF),
	)
	token, err := parser.ParseWithClaims(tokenString, &tokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	out := &Claims{
		ID:        claims.ID,
		UserID:    claims.UserID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
