// Package permissions decides what a member may do: group actions through a
// casbin role policy, circle actions through per-member flags.
package permissions

import (
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"social-service/internal/models"
)

var ErrForbidden = errors.New("forbidden")

// Action is a gated group operation.
type Action string

const (
	SendMessage   Action = "send_message"
	Leave         Action = "leave"
	AddMember     Action = "add_member"
	RemoveMember  Action = "remove_member"
	EditSettings  Action = "edit_settings"
	ChangeRole    Action = "change_role"
	Dissolve      Action = "dissolve"
	ViewDashboard Action = "view_dashboard"
	ManageTickets Action = "manage_tickets"
)

// Scopes partition the policy so group roles and site roles never mix.
const (
	ScopeGroup = "group"
	ScopeSite  = "site"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

var groupActions = []Action{SendMessage, Leave, AddMember, RemoveMember, EditSettings, ChangeRole, Dissolve}

// Policy wraps the enforcer loaded with the built-in role policy.
type Policy struct {
	enforcer *casbin.Enforcer
}

// New builds the policy. Roles inherit downwards: admin has every
// moderator action and moderator every member action.
func New() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	rules := [][]interface{}{
		{string(models.GroupMember), ScopeGroup, string(SendMessage)},
		{string(models.GroupMember), ScopeGroup, string(Leave)},
		{string(models.GroupModerator), ScopeGroup, string(AddMember)},
		{string(models.GroupModerator), ScopeGroup, string(RemoveMember)},
		{string(models.GroupAdmin), ScopeGroup, string(EditSettings)},
		{string(models.GroupAdmin), ScopeGroup, string(ChangeRole)},
		{string(models.GroupAdmin), ScopeGroup, string(Dissolve)},
		{"site_admin", ScopeSite, string(ViewDashboard)},
		{"site_admin", ScopeSite, string(ManageTickets)},
	}
	for _, rule := range rules {
		if _, err := e.AddPolicy(rule...); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", rule, err)
		}
	}
	inherit := [][]interface{}{
		{string(models.GroupAdmin), string(models.GroupModerator)},
		{string(models.GroupModerator), string(models.GroupMember)},
	}
	for _, rule := range inherit {
		if _, err := e.AddGroupingPolicy(rule...); err != nil {
			return nil, fmt.Errorf("add role inheritance %v: %w", rule, err)
		}
	}
	return &Policy{enforcer: e}, nil
}

// Can reports whether a group member with role may perform act.
func (p *Policy) Can(role models.GroupRole, act Action) bool {
	if !role.Valid() {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), ScopeGroup, string(act))
	return err == nil && ok
}

// Check is Can returning ErrForbidden.
func (p *Policy) Check(role models.GroupRole, act Action) error {
	if !p.Can(role, act) {
		return fmt.Errorf("%w: %s cannot %s", ErrForbidden, role, act)
	}
	return nil
}

// Actions lists the group actions role has enabled.
func (p *Policy) Actions(role models.GroupRole) []Action {
	out := make([]Action, 0, len(groupActions))
	for _, act := range groupActions {
		if p.Can(role, act) {
			out = append(out, act)
		}
	}
	return out
}

// CanRemove reports whether actor may remove a member holding target. The
// actor needs remove_member and must outrank the target.
func (p *Policy) CanRemove(actor, target models.GroupRole) bool {
	return p.Can(actor, RemoveMember) && rank(actor) > rank(target)
}

// SiteCan gates the admin surfaces on the profile role.
func (p *Policy) SiteCan(profileRole string, act Action) bool {
	if profileRole != "admin" {
		return false
	}
	ok, err := p.enforcer.Enforce("site_admin", ScopeSite, string(act))
	return err == nil && ok
}

func rank(role models.GroupRole) int {
	switch role {
	case models.GroupAdmin:
		return 3
	case models.GroupModerator:
		return 2
	case models.GroupMember:
		return 1
	}
	return 0
}

// CirclePerm names one circle permission flag.
type CirclePerm string

const (
	CirclePost        CirclePerm = "can_post"
	CircleInvite      CirclePerm = "can_invite"
	CircleManagePosts CirclePerm = "can_manage_posts"
	CircleStartCalls  CirclePerm = "can_start_calls"
)

// CircleCan reports whether member holds perm. Owners hold everything.
func CircleCan(member models.CircleMember, perm CirclePerm) bool {
	if member.Role == models.CircleOwner {
		return true
	}
	switch perm {
	case CirclePost:
		return member.CanPost
	case CircleInvite:
		return member.CanInvite
	case CircleManagePosts:
		return member.CanManagePosts
	case CircleStartCalls:
		return member.CanStartCalls
	}
	return false
}

// CanManageCircleMember reports whether actor may change or remove target.
// Owners manage everyone else; admins manage plain members only.
func CanManageCircleMember(actor, target models.CircleMember) bool {
	if actor.UserID == target.UserID || target.Role == models.CircleOwner {
		return false
	}
	switch actor.Role {
	case models.CircleOwner:
		return true
	case models.CircleAdmin:
		return target.Role == models.CircleRoleMember
	}
	return false
}
