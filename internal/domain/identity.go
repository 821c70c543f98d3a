package domain

import "slices"

// Permissions carried by identity-provider tokens.
const (
	PermissionPlatformAdmin    = "platform:admin"
	PermissionModerationManage = "moderation:manage"
)

// Identity is an authenticated principal resolved by the external identity provider.
type Identity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the identity carries permission.
// platform:admin implies every permission.
func (i Identity) HasPermission(permission string) bool {
	if slices.Contains(i.Permissions, PermissionPlatformAdmin) {
		return true
	}
	return slices.Contains(i.Permissions, permission)
}

// PrivilegeCheck decides whether an identity is trusted to bypass review
// and to perform moderator actions.
type PrivilegeCheck func(Identity) bool

// IsModerator is the default PrivilegeCheck.
func IsModerator(i Identity) bool {
	return i.HasPermission(PermissionModerationManage)
}
