package rbac

import (
	"context"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
)

// ChangeRole sets the role of userID. Only admins may do it, and the last
// admin cannot be demoted.
func ChangeRole(ctx context.Context, users directory.Store, id Identity, userID string, role directory.Role) (directory.User, error) {
	if err := RequireRole(id, directory.RoleAdmin); err != nil {
		return directory.User{}, err
	}
	if !role.Valid() {
		return directory.User{}, apperr.Validation("role must be one of student, instructor, admin")
	}
	target, err := users.GetUser(ctx, userID)
	if err != nil {
		return directory.User{}, err
	}
	if target.Role == role {
		return target, nil
	}
	if target.Role == directory.RoleAdmin {
		n, err := users.CountAdmins(ctx)
		if err != nil {
			return directory.User{}, err
		}
		if n <= 1 {
			return directory.User{}, apperr.Validation("cannot demote the last admin")
		}
	}
	return users.UpdateUserRole(ctx, userID, role)
}
