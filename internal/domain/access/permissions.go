// Package access holds the read-only permission snapshot consulted by the admin router.
package access

// EntityType distinguishes collections from globals.
type EntityType string

const (
	EntityCollection EntityType = "collection"
	EntityGlobal     EntityType = "global"
)

// Action is an operation gated by access rules.
type Action string

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionReadVersions Action = "readVersions"
)

// CollectionActions are evaluated for every collection.
var CollectionActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionReadVersions}

// GlobalActions are evaluated for every global.
var GlobalActions = []Action{ActionRead, ActionUpdate, ActionReadVersions}

// Actions maps an action to whether it is allowed.
type Actions map[Action]bool

// PermissionSet is the per-session permission snapshot.
// A nil *PermissionSet means permissions have not been evaluated yet.
type PermissionSet struct {
	// CanAccessAdmin is nil until the admin gate has been evaluated.
	CanAccessAdmin *bool              `json:"canAccessAdmin,omitempty"`
	Collections    map[string]Actions `json:"collections"`
	Globals        map[string]Actions `json:"globals"`
}

// Decision is the tri-state outcome of a permission check at the router boundary.
type Decision int

const (
	// Unresolved means permissions are still loading.
	Unresolved Decision = iota
	Denied
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unresolved"
	}
}

// Check is a pure lookup. Absent entries deny.
func (p *PermissionSet) Check(entity EntityType, slug string, action Action) bool {
	if p == nil {
		return false
	}
	var byEntity map[string]Actions
	switch entity {
	case EntityCollection:
		byEntity = p.Collections
	case EntityGlobal:
		byEntity = p.Globals
	default:
		return false
	}
	return byEntity[slug][action]
}

// Decide is Check lifted to the tri-state used by the router: a nil set is Unresolved.
func (p *PermissionSet) Decide(entity EntityType, slug string, action Action) Decision {
	if p == nil {
		return Unresolved
	}
	if p.Check(entity, slug, action) {
		return Allowed
	}
	return Denied
}

// AdminAccess reports the admin gate as a Decision.
func (p *PermissionSet) AdminAccess() Decision {
	if p == nil || p.CanAccessAdmin == nil {
		return Unresolved
	}
	if *p.CanAccessAdmin {
		return Allowed
	}
	return Denied
}

// NewPermissionSet returns an empty, resolved set that denies everything.
func NewPermissionSet(canAccessAdmin bool) *PermissionSet {
	return &PermissionSet{
		CanAccessAdmin: &canAccessAdmin,
		Collections:    map[string]Actions{},
		Globals:        map[string]Actions{},
	}
}

// Set records a decision.
func (p *PermissionSet) Set(entity EntityType, slug string, action Action, allowed bool) {
	var byEntity map[string]Actions
	switch entity {
	case EntityCollection:
		if p.Collections == nil {
			p.Collections = map[string]Actions{}
		}
		byEntity = p.Collections
	case EntityGlobal:
		if p.Globals == nil {
			p.Globals = map[string]Actions{}
		}
		byEntity = p.Globals
	default:
		return
	}
	if byEntity[slug] == nil {
		byEntity[slug] = Actions{}
	}
	byEntity[slug][action] = allowed
}
