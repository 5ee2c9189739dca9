package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quizctl/internal/domain"
)

// Claims is the payload of a quiz bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64         `json:"user_id"`
	Username string        `json:"username"`
	Roles    []domain.Role `json:"roles,omitempty"`
}

// Issuer signs and checks HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for user. A non-positive ttl yields a token without expiry.
func (i *Issuer) Issue(user domain.User) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Subject:  strconv.FormatInt(user.ID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the token's user.
func (i *Issuer) Parse(tokenStr string) (domain.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.User{}, domain.ErrSessionExpired
		}
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return domain.User{ID: claims.UserID, Username: claims.Username, Roles: claims.Roles}, nil
}

// CheckExpiry reads the exp claim without verifying the signature. Tokens
// that are not JWTs, or carry no exp, pass.
func CheckExpiry(tokenStr string, now time.Time) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return domain.ErrSessionExpired
	}
	return nil
}
