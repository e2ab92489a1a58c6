package engine

import "context"

// Access names a platform capability gated by the user.
type Access string

const (
	AccessPhotoLibrary Access = "photo-library"
	AccessStorage      Access = "storage"
)

// Permissions asks the platform for access. A false result is a denial.
type Permissions interface {
	Request(ctx context.Context, a Access) (bool, error)
}

// PermissionFunc adapts a function to Permissions.
type PermissionFunc func(ctx context.Context, a Access) (bool, error)

// Request implements Permissions.
func (f PermissionFunc) Request(ctx context.Context, a Access) (bool, error) {
	return f(ctx, a)
}

// AllowAll grants every request. Used by the CLI and server, where the
// operator already controls file and network access.
type AllowAll struct{}

func (AllowAll) Request(context.Context, Access) (bool, error) { return true, nil }

// DenyAll refuses every request.
type DenyAll struct{}

func (DenyAll) Request(context.Context, Access) (bool, error) { return false, nil }
