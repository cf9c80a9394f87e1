package usecase

import (
	"errors"
	"fmt"
	"time"

	"aura-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// AuthUsecase issues and validates the HS256 bearer tokens that identify
// callers. Accounts live in the identity provider; only the user_id claim
// is used here.
type AuthUsecase interface {
	IssueToken(userID string) (string, error)
	ValidateToken(tokenString string) (string, error)
}

type authUsecase struct {
	config *config.Config
}

func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{config: cfg}
}

func (u *authUsecase) IssueToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidClaims
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

// ValidateToken returns the user id carried by a valid token.
func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidClaims
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidClaims
	}
	return userID, nil
}
