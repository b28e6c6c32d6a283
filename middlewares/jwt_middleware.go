package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"goally/services"
	"goally/utils"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type contextKey string

const PrincipalContextKey contextKey = "principal"

// IdentityMiddleware resolves the acting principal. Requests without an
// Authorization header act as the anonymous principal; a header that is
// present but invalid is rejected. An empty secret disables token auth and
// every request is anonymous.
func IdentityMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || jwtSecret == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), services.AnonymousPrincipal)))
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.HandleMessageResponse(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				utils.HandleMessageResponse(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid || claims.Username == "" {
				utils.HandleMessageResponse(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Username)))
		})
	}
}

func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// GetPrincipalFromContext returns the principal set by IdentityMiddleware, or
// anonymous when none was set.
func GetPrincipalFromContext(ctx context.Context) string {
	if principal, ok := ctx.Value(PrincipalContextKey).(string); ok && principal != "" {
		return principal
	}
	return services.AnonymousPrincipal
}

// IssueToken signs an HS256 token for username. Used by tests and tooling.
func IssueToken(jwtSecret, username string, claims jwt.RegisteredClaims) (string, error) {
	if jwtSecret == "" {
		return "", errors.New("jwt secret required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Username: username, RegisteredClaims: claims})
	return token.SignedString([]byte(jwtSecret))
}
