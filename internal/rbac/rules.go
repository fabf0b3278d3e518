package rbac

// Route-level policy. Ownership, enrollment and publication state are
// checked per resource by Authorize.
var RolePermissions = map[string][]string{
	"student": {
		"progress:self",
		"course:enroll",
		"quiz:view",
		"quiz:submit",
		"results:view",
	},
	"instructor": {
		"progress:self",
		"course:enroll",
		"course:roster",
		"quiz:*",
		"results:view",
	},
	"admin": {
		"*", // everything
	},
}
