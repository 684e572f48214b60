package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// BuyerKey holds the authenticated buyer id in the gin context.
const BuyerKey = "buyerID"

// AuthMiddleware validates the bearer token and stores the buyer identity.
// Checkout never trusts a buyer id from the request body.
func AuthMiddleware(secret string) gin.HandlerFunc {
	secretKey := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secretKey, nil
		})
		if err != nil || token == nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token carries no subject"})
			return
		}

		c.Set(BuyerKey, sub)
		c.Next()
	}
}

// GetBuyerID returns the authenticated buyer id, or "" when unauthenticated.
func GetBuyerID(c *gin.Context) string {
	if val, exists := c.Get(BuyerKey); exists {
		return val.(string)
	}
	return ""
}
