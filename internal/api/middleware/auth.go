package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

// Context keys populated by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// RoleAdmin marks back-office operator tokens.
const RoleAdmin = "admin"

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for the given subject and role.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (*claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || c.Subject == "" {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// OptionalAuth populates the caller identity from a bearer token when one
// is present, without rejecting anonymous requests.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearerToken(c); ok {
			if cl, err := parseToken(tokenStr, secret); err == nil {
				c.Set(ContextUserID, cl.Subject)
				c.Set(ContextRole, cl.Role)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		cl, err := parseToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ContextUserID, cl.Subject)
		c.Set(ContextRole, cl.Role)
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
