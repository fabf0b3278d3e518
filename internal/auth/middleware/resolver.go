package auth

import (
	"context"
	"log/slog"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type TokenParser interface {
	Parse(token string) (*Claims, error)
}

// Resolver maps a credential to the caller's current persisted identity.
// Role and enrollments are read from the directory on every call.
type Resolver struct {
	Tokens TokenParser
	Users  directory.Store
	Log    *slog.Logger
}

func (r *Resolver) Resolve(ctx context.Context, credential string) (rbac.Identity, error) {
	if credential == "" {
		return rbac.Identity{}, apperr.Unauthenticated("missing bearer token")
	}
	claims, err := r.Tokens.Parse(credential)
	if err != nil || claims.Subject == "" {
		return rbac.Identity{}, apperr.Unauthenticated("invalid token")
	}

	u, err := r.Users.FindUserBySubject(ctx, claims.Subject)
	switch {
	case err == nil:
	case apperr.KindOf(err) == apperr.KindNotFound:
		name := claims.Name
		if name == "" {
			name = "User"
		}
		u, err = r.Users.CreateUser(ctx, directory.User{
			Subject: claims.Subject,
			Name:    name,
			Email:   claims.Email,
			Avatar:  claims.Picture,
			Role:    directory.RoleStudent,
		})
		if err != nil {
			return rbac.Identity{}, apperr.Internal(err)
		}
		if r.Log != nil {
			r.Log.InfoContext(ctx, "provisioned user", "user_id", u.ID, "subject", claims.Subject)
		}
	default:
		return rbac.Identity{}, apperr.Internal(err)
	}
	return rbac.Identity{User: u}, nil
}
