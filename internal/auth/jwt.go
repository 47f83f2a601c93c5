package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Verifier проверяет JWT-токены и извлекает идентификатор пользователя.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

// NewVerifier создает верификатор с симметричным секретом.
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: logger.Named("auth"),
	}
}

// UserID валидирует токен и возвращает claim "sub".
func (v *Verifier) UserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("невалидный токен: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("невалидные claims токена")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("claim 'sub' отсутствует или пуст")
	}
	return sub, nil
}

// Middleware возвращает gin middleware, требующее валидный Bearer-токен.
// Идентификатор пользователя кладется в контекст под ключом "user_id".
// Для WebSocket и SSE токен принимается также из query-параметра token.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "отсутствует токен авторизации"})
			return
		}

		userID, err := v.UserID(tokenString)
		if err != nil {
			v.logger.Warn("Token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "невалидный токен"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
