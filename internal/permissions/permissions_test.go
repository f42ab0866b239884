package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/models"
)

func TestGroupRoleGating(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	tests := []struct {
		role    models.GroupRole
		allowed []Action
		denied  []Action
	}{
		{models.GroupMember, []Action{SendMessage, Leave}, []Action{AddMember, RemoveMember, EditSettings, ChangeRole, Dissolve}},
		{models.GroupModerator, []Action{SendMessage, Leave, AddMember, RemoveMember}, []Action{EditSettings, ChangeRole, Dissolve}},
		{models.GroupAdmin, []Action{SendMessage, Leave, AddMember, RemoveMember, EditSettings, ChangeRole, Dissolve}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, act := range tt.allowed {
				assert.True(t, p.Can(tt.role, act), act)
			}
			for _, act := range tt.denied {
				assert.False(t, p.Can(tt.role, act), act)
				assert.ErrorIs(t, p.Check(tt.role, act), ErrForbidden)
			}
			assert.ElementsMatch(t, tt.allowed, p.Actions(tt.role))
		})
	}

	assert.False(t, p.Can("owner", SendMessage))
	assert.False(t, p.Can(models.GroupAdmin, ViewDashboard))
}

func TestCanRemove(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	assert.True(t, p.CanRemove(models.GroupModerator, models.GroupMember))
	assert.False(t, p.CanRemove(models.GroupModerator, models.GroupModerator))
	assert.False(t, p.CanRemove(models.GroupModerator, models.GroupAdmin))
	assert.True(t, p.CanRemove(models.GroupAdmin, models.GroupModerator))
	assert.False(t, p.CanRemove(models.GroupAdmin, models.GroupAdmin))
	assert.False(t, p.CanRemove(models.GroupMember, models.GroupMember))
}

func TestSiteCan(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	assert.True(t, p.SiteCan("admin", ViewDashboard))
	assert.True(t, p.SiteCan("admin", ManageTickets))
	assert.False(t, p.SiteCan("user", ViewDashboard))
	assert.False(t, p.SiteCan("admin", Dissolve))
}

func TestCirclePermissions(t *testing.T) {
	owner := models.CircleMember{UserID: 1, Role: models.CircleOwner}
	admin := models.CircleMember{UserID: 2, Role: models.CircleAdmin, CirclePermissions: models.DefaultCirclePermissions(models.CircleAdmin)}
	member := models.CircleMember{UserID: 3, Role: models.CircleRoleMember, CirclePermissions: models.DefaultCirclePermissions(models.CircleRoleMember)}

	assert.True(t, CircleCan(owner, CircleStartCalls))
	assert.True(t, CircleCan(admin, CircleInvite))
	assert.True(t, CircleCan(member, CirclePost))
	assert.False(t, CircleCan(member, CircleStartCalls))
	assert.False(t, CircleCan(member, "can_fly"))

	member.CanStartCalls = true
	assert.True(t, CircleCan(member, CircleStartCalls))

	assert.True(t, CanManageCircleMember(owner, admin))
	assert.True(t, CanManageCircleMember(admin, member))
	assert.False(t, CanManageCircleMember(admin, owner))
	assert.False(t, CanManageCircleMember(member, admin))
	assert.False(t, CanManageCircleMember(owner, owner))
}
