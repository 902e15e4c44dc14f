package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and parses the session tokens handed out after a
// successful initData authentication. The secret is injected; there is
// no package-level key.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

func (s *TokenService) Issue(userID int64) (string, error) {
	now := time.Now()
	// the id travels as a string: hashed external ids sit above 2^53,
	// where a numeric JSON claim loses low bits through float64
	claims := jwt.MapClaims{
		"user_id": strconv.FormatInt(userID, 10),
		"exp":     now.Add(s.ttl).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Parse(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < now {
		return 0, errors.New("token expired")
	}
	if nbf, ok := claims["nbf"].(float64); ok && int64(nbf) > now {
		return 0, errors.New("token not valid yet")
	}

	raw, ok := claims["user_id"].(string)
	if !ok {
		return 0, errors.New("user_id not found")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("malformed user_id")
	}
	return userID, nil
}
