package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "helipad/pkg/errors"
	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PrincipalKey contextKey = "principal"

	PrivilegedRole = "admin"

	// Header identity is only honoured when explicitly trusted and no JWT
	// secret is configured.
	PrincipalIDHeader   = "X-Principal-ID"
	PrincipalRoleHeader = "X-Principal-Role"
)

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errIdentityNotConfigured = errors.New("identity is not configured on this gateway")

// Identity resolves the caller from a Bearer token signed with secret and
// stores the resulting Principal in the request context. With an empty
// secret the X-Principal-* headers set by an upstream proxy are used, but
// only when trustHeaders is set; otherwise every request is rejected.
func Identity(secret string, trustHeaders bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				principal model.Principal
				err       error
			)
			switch {
			case secret != "":
				principal, err = principalFromToken(r, secret)
			case trustHeaders:
				principal, err = principalFromHeaders(r)
			default:
				err = errIdentityNotConfigured
			}
			if err != nil {
				log.Warn("Rejected unauthenticated request",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized(err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func principalFromToken(r *http.Request, secret string) (model.Principal, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Principal{}, errors.New("missing bearer token")
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return model.Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return model.Principal{}, errors.New("token has no subject")
	}

	return model.Principal{
		ID:         claims.Subject,
		Privileged: claims.Role == PrivilegedRole,
	}, nil
}

func principalFromHeaders(r *http.Request) (model.Principal, error) {
	id := strings.TrimSpace(r.Header.Get(PrincipalIDHeader))
	if id == "" {
		return model.Principal{}, errors.New("missing " + PrincipalIDHeader + " header")
	}
	return model.Principal{
		ID:         id,
		Privileged: r.Header.Get(PrincipalRoleHeader) == PrivilegedRole,
	}, nil
}

// IssueToken signs an HS256 token for subject. Used by tooling and tests.
func IssueToken(secret, subject, role string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{Role: role, RegisteredClaims: claims})
	return token.SignedString([]byte(secret))
}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(model.Principal)
	return p, ok
}
