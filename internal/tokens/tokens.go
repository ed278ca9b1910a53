// Package tokens signs and verifies the access and refresh JWTs.
package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the payload of both token kinds.
type Claims struct {
	UserID uint64 `json:"userId"`
	Kind   Kind   `json:"typ"`
	jwt.RegisteredClaims
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer signs tokens with HS256. Access and refresh tokens use separate secrets.
type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of the issuer using now as its time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) Now() time.Time { return i.now() }

// Issued is a signed token with its metadata.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (i *Issuer) IssueAccess(userID uint64) (Issued, error) {
	return i.sign(userID, KindAccess, i.cfg.AccessSecret, i.cfg.AccessTTL, "")
}

// IssueRefresh signs a refresh token with a unique jti so that two tokens
// issued in the same second never collide.
func (i *Issuer) IssueRefresh(userID uint64) (Issued, error) {
	return i.sign(userID, KindRefresh, i.cfg.RefreshSecret, i.cfg.RefreshTTL, ksuid.New().String())
}

func (i *Issuer) sign(userID uint64, kind Kind, secret string, ttl time.Duration, jti string) (Issued, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return Issued{Token: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, KindAccess, i.cfg.AccessSecret)
}

func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, KindRefresh, i.cfg.RefreshSecret)
}

func (i *Issuer) parse(token string, kind Kind, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Kind != kind || claims.UserID == 0 {
		return nil, ErrInvalid
	}
	return claims, nil
}

// Hash returns the hex SHA-256 digest under which a refresh token is stored.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
