package auth

import (
	"errors"
	"fmt"
	"time"

	"ghost-crew/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	UserID int
	Role   models.Role
}

// IssueToken signs an HS256 token carrying user_id, role and exp.
func IssueToken(secret []byte, u models.User, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    string(u.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return Claims{}, ErrTokenExpired
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok || !models.Role(role).Valid() {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: int(userID), Role: models.Role(role)}, nil
}
