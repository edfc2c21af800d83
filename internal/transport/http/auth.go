package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"timed-quiz-service/internal/domain"
)

const roleAdmin = "admin"

// AdminClaims are carried in admin bearer tokens.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks the admin credentials and issues HS256 tokens.
type Authenticator struct {
	secret       []byte
	ttl          time.Duration
	adminEmail   string
	passwordHash []byte
	now          func() time.Time
}

func NewAuthenticator(secret string, ttl time.Duration, adminEmail, passwordHash string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if adminEmail == "" || passwordHash == "" {
		return nil, errors.New("admin email and password hash are required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret:       []byte(secret),
		ttl:          ttl,
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: []byte(passwordHash),
		now:          time.Now,
	}, nil
}

// Login returns a signed token for valid admin credentials.
func (a *Authenticator) Login(email, password string) (string, error) {
	if strings.ToLower(strings.TrimSpace(email)) != a.adminEmail {
		return "", domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", domain.ErrUnauthorized
	}

	now := a.now()
	claims := AdminClaims{
		Email: a.adminEmail,
		Role:  roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses a token and requires the admin role.
func (a *Authenticator) Verify(raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	if claims.Role != roleAdmin {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (a *Authenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Missing token"})
			return
		}
		if _, err := a.Verify(strings.TrimSpace(raw)); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Invalid token"})
			return
		}
		next(w, r)
	}
}
