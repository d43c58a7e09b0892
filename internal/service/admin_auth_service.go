package service

import (
	"os"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthService issues admin tokens for the back office. Regular users
// authenticate against the external identity provider; the single back
// office account is configured through ADMIN_EMAIL and ADMIN_PASSWORD_HASH.
type AdminAuthService struct{}

func NewAdminAuthService() *AdminAuthService {
	return &AdminAuthService{}
}

func (s *AdminAuthService) Login(email, password string) (string, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminEmail == "" || passwordHash == "" {
		return "", apperr.State("admin login is not configured")
	}
	if email != adminEmail {
		return "", apperr.Permission("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return "", apperr.Permission("invalid credentials")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", apperr.State("JWT_SECRET is not configured")
	}
	claims := jwt.MapClaims{
		"sub":  0,
		"role": auth.RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
