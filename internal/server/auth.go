package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type subjectKey struct{}

// Subject returns the authenticated subject stored by the auth middleware.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}

// jwtAuth rejects requests without a valid HS256 bearer token. When issuer is
// set the token must carry it.
func jwtAuth(secret, issuer string, logger *otelzap.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				writeErrorMessage(w, http.StatusUnauthorized, shipping.ErrUnauthenticated.Error())
				return
			}

			claims := jwt.RegisteredClaims{}
			parsed, err := parser.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil || !parsed.Valid {
				logger.Ctx(r.Context()).Warn("Rejected bearer token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeErrorMessage(w, http.StatusUnauthorized, shipping.ErrUnauthenticated.Error())
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
