package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextSubjectKey = "auth_subject"

// Claims are the JWT claims accepted by the API.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject that expires after ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "wizqueue",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// authMiddleware accepts either the static API token or a JWT signed with
// secret. With neither configured every request passes.
func authMiddleware(staticToken, secret string) gin.HandlerFunc {
	if staticToken == "" && secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		bearer, ok := strings.CutPrefix(header, "Bearer ")
		bearer = strings.TrimSpace(bearer)
		if !ok || bearer == "" {
			respondFail(c, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
			return
		}
		if staticToken != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(staticToken)) == 1 {
			c.Set(contextSubjectKey, "api-token")
			c.Next()
			return
		}
		if secret != "" {
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err == nil && token.Valid {
				c.Set(contextSubjectKey, claims.Subject)
				c.Next()
				return
			}
		}
		respondFail(c, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
	}
}
