// Package authroles maps identity provider groups onto Folio roles.
package authroles

import (
	"slices"

	"github.com/target/folio/internal/ports"
)

// Role names written to the user document.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// StaticRoleMapper maps groups by exact membership. Admin wins over editor;
// a user in neither group gets no roles.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

var _ ports.RoleMapper = StaticRoleMapper{}

// Map returns the roles for groups, or nil when no group is configured.
func (m StaticRoleMapper) Map(groups []string) []string {
	if m.AdminGroup == "" && m.UserGroup == "" {
		return nil
	}
	if m.AdminGroup != "" && slices.Contains(groups, m.AdminGroup) {
		return []string{RoleAdmin}
	}
	if m.UserGroup != "" && slices.Contains(groups, m.UserGroup) {
		return []string{RoleEditor}
	}
	return []string{}
}
