package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flashdeck-app/flashcard-service/internal/models"
)

// JWT signs and validates the opaque bearer tokens of the identity gate.
type JWT struct {
	key []byte
	ttl time.Duration
}

// Identity is the subject a valid token resolves to.
type Identity struct {
	UserID  uint
	Role    models.UserRole
	Expires int64 // Unix second
}

func New(key string, ttl time.Duration) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("jwt key is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &JWT{key: []byte(key), ttl: ttl}, nil
}

// SignToken issues a token for the given user, expiring after the configured TTL.
func (j *JWT) SignToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(j.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.key)
}

// ParseIdentity validates a token string and maps its claims. Expired or
// malformed tokens fail; expiry is enforced by the parser.
func (j *JWT) ParseIdentity(tokenString string) (*Identity, error) {
	if len(tokenString) == 0 {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse jwt failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	identity := &Identity{}
	if sub, ok := claims["sub"].(float64); ok {
		identity.UserID = uint(sub)
	} else {
		return nil, errors.New("invalid subject claim")
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = models.UserRole(role)
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.Expires = int64(exp)
	}

	return identity, nil
}
