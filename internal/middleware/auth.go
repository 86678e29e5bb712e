package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const operatorKey ctxKey = "operator"

// IssueToken подписывает bearer-токен оператора секретом сервера.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty auth secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	// ttl == 0: бессрочный токен, отрицательный: уже истёкший
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token without subject")
	}
	return claims.Subject, nil
}

// WithAuth кладёт оператора из заголовка Authorization в контекст.
// Запрос без токена или с невалидным токеном проходит анонимно.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if ok && raw != "" {
				if sub, err := parseToken(secret, raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), operatorKey, sub))
				} else if logger != nil {
					logger.Debugw("auth: invalid token", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOperator отклоняет анонимные запросы.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetOperatorFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetOperatorFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(operatorKey).(string)
	return sub, ok && sub != ""
}
