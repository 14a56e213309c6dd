package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

var errBadToken = errors.New("invalid token")

// Claims is what the identity provider puts in a bearer token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

func withIdentity(ctx context.Context, id types.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// identityFrom returns the caller set by the identify middleware.
func identityFrom(ctx context.Context) types.Identity {
	id, _ := ctx.Value(ctxKey{}).(types.Identity)
	return id
}

func parseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return nil, errBadToken
	}
	return c, nil
}

// identify resolves the caller. With a JWT secret configured a valid
// bearer token is required; browsers opening the websocket stream may pass
// it as ?access_token= instead. Without a secret the X-User-ID header, or
// the configured development user, is trusted.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id types.Identity

		if s.auth.JWTSecret != "" {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" {
				raw = r.URL.Query().Get("access_token")
			}
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer token required")
				return
			}
			claims, err := parseToken(raw, s.auth.JWTSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "bad token")
				return
			}
			id = types.Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}
		} else {
			id.UserID = strings.TrimSpace(r.Header.Get("X-User-ID"))
			if id.UserID == "" {
				id.UserID = s.auth.DevUserID
			}
			if id.UserID == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "caller identity is required")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}
