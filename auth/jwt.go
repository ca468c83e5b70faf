package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT verifier.
type JWTConfig struct {
	// Secret is the HMAC signing secret.
	Secret []byte

	// Issuer is the expected token issuer (iss claim). Optional.
	Issuer string

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// PrincipalClaim is the claim containing the user principal.
	// Default: "sub"
	PrincipalClaim string

	// RolesClaim is the claim containing user roles. Optional.
	RolesClaim string
}

// JWTVerifier validates JWT tokens.
type JWTVerifier struct {
	config JWTConfig
}

// NewJWTVerifier creates a new JWT verifier.
func NewJWTVerifier(config JWTConfig) *JWTVerifier {
	// Apply defaults
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}

	return &JWTVerifier{config: config}
}

// Verify validates a raw token string and returns the identity it
// carries.
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return v.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	if v.config.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != v.config.Issuer {
			return nil, ErrInvalidCredentials
		}
	}

	principal, _ := claims[v.config.PrincipalClaim].(string)
	if principal == "" {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{
		Principal: principal,
		Claims:    claims,
	}
	if v.config.RolesClaim != "" {
		if raw, ok := claims[v.config.RolesClaim].([]any); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					id.Roles = append(id.Roles, s)
				}
			}
		}
	}

	return id, nil
}

// VerifyRequest extracts and validates the token carried by an HTTP
// request.
func (v *JWTVerifier) VerifyRequest(r *http.Request) (*Identity, error) {
	header := r.Header.Get(v.config.HeaderName)
	if header == "" {
		return nil, ErrMissingCredentials
	}

	tokenString := strings.TrimPrefix(header, v.config.TokenPrefix)
	if tokenString == header {
		return nil, ErrMissingCredentials
	}

	return v.Verify(strings.TrimSpace(tokenString))
}

// Middleware attaches the verified identity to the request context.
// Requests without credentials pass through anonymously: downstream
// policy decides whether a route is public, and the rate limiter falls
// back to the network address for unauthenticated callers.
func (v *JWTVerifier) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.VerifyRequest(r)
			if err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that did not authenticate with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).IsAnonymous() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"statusCode":401,"message":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
