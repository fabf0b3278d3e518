package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// AuthService verifies bearer tokens minted by the identity provider. It
// can also mint tokens for the local bootstrap login.
type AuthService struct {
	hmac     []byte
	issuer   string
	audience string
}

func NewAuthService(secret, issuer, audience string) *AuthService {
	return &AuthService{hmac: []byte(secret), issuer: issuer, audience: audience}
}

// Claims carries the profile fields used to provision a first-time user.
// Role is never read from the token.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, name, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    a.issuerOr("mindengage-offline"),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) issuerOr(def string) string {
	if a.issuer != "" {
		return a.issuer
	}
	return def
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Authenticate resolves the bearer credential on every request and stores
// the resulting identity in the request context.
func Authenticate(res *Resolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			cred := ""
			if strings.HasPrefix(h, "Bearer ") {
				cred = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
			id, err := res.Resolve(r.Context(), cred)
			if err != nil {
				code := http.StatusUnauthorized
				if apperr.KindOf(err) == apperr.KindInternal {
					code = http.StatusInternalServerError
					log.ErrorContext(r.Context(), "resolve identity", "err", err)
				}
				writeError(w, code, apperr.PublicMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
