package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-service/internal/calls"
	"social-service/internal/mocks"
	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

func setupCircleRouter(repo *mocks.CircleRepositoryMock) (*gin.Engine, *calls.Manager) {
	manager := calls.NewManager(realtime.NewMemory())
	handler := NewCircleHandler(repo, manager, nil)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/circles", handler.CreateCircle)
	r.GET("/circles/:circle_id", handler.GetCircle)
	r.POST("/circles/:circle_id/members", handler.Invite)
	r.PUT("/circles/:circle_id/members/:user_id", handler.UpdateMember)
	r.DELETE("/circles/:circle_id/members/:user_id", handler.RemoveMember)
	r.POST("/circles/:circle_id/posts", handler.CreatePost)
	r.DELETE("/circles/:circle_id/posts/:post_id", handler.DeletePost)
	r.POST("/circles/:circle_id/call", handler.StartCall)
	return r, manager
}

func circleMember(userID int, role models.CircleRole, perms models.CirclePermissions) models.CircleMember {
	return models.CircleMember{CircleID: 3, UserID: userID, Role: role, CirclePermissions: perms}
}

func TestCircleNonMemberForbidden(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)
	repo.On("GetMember", mock.Anything, 3, 1).Return(models.CircleMember{}, repositories.ErrNotMember).Once()

	rec := serve(router, http.MethodGet, "/circles/3", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "GetCircle", mock.Anything, mock.Anything)
}

func TestInviteRequiresCanInvite(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), nil).Once()
	rec := serve(router, http.MethodPost, "/circles/3/members", `{"user_id":8}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanInvite: true}), nil).Once()
	repo.On("AddMember", mock.Anything, 3, 8, models.CircleRoleMember).Return(circleMember(8, models.CircleRoleMember, models.DefaultCirclePermissions(models.CircleRoleMember)), nil).Once()
	rec = serve(router, http.MethodPost, "/circles/3/members", `{"user_id":8}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleOwner, models.CirclePermissions{}), nil).Once()
	repo.On("AddMember", mock.Anything, 3, 8, models.CircleRoleMember).Return(models.CircleMember{}, repositories.ErrAlreadyMember).Once()
	rec = serve(router, http.MethodPost, "/circles/3/members", `{"user_id":8}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreatePostRequiresCanPost(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{}), nil).Once()
	rec := serve(router, http.MethodPost, "/circles/3/posts", `{"content":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), nil).Twice()
	rec = serve(router, http.MethodPost, "/circles/3/posts", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo.On("CreatePost", mock.Anything, 3, 1, "hi", (*string)(nil)).Return(models.CirclePost{ID: 11, CircleID: 3, AuthorID: 1}, nil).Once()
	rec = serve(router, http.MethodPost, "/circles/3/posts", `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeletePostAuthorOrManager(t *testing.T) {
	tests := []struct {
		name   string
		me     models.CircleMember
		author int
		status int
	}{
		{"author", circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), 1, http.StatusNoContent},
		{"other member", circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), 2, http.StatusForbidden},
		{"post manager", circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanManagePosts: true}), 2, http.StatusNoContent},
		{"owner", circleMember(1, models.CircleOwner, models.CirclePermissions{}), 2, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mocks.CircleRepositoryMock)
			router, _ := setupCircleRouter(repo)
			repo.On("GetMember", mock.Anything, 3, 1).Return(tc.me, nil).Once()
			repo.On("GetPost", mock.Anything, 11).Return(models.CirclePost{ID: 11, CircleID: 3, AuthorID: tc.author}, nil).Once()
			if tc.status == http.StatusNoContent {
				repo.On("DeletePost", mock.Anything, 11).Return(nil).Once()
			}

			rec := serve(router, http.MethodDelete, "/circles/3/posts/11", "")

			assert.Equal(t, tc.status, rec.Code)
			repo.AssertExpectations(t)
			if tc.status != http.StatusNoContent {
				repo.AssertNotCalled(t, "DeletePost", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDeletePostFromOtherCircleNotFound(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)
	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleOwner, models.CirclePermissions{}), nil).Once()
	repo.On("GetPost", mock.Anything, 11).Return(models.CirclePost{ID: 11, CircleID: 4, AuthorID: 1}, nil).Once()

	rec := serve(router, http.MethodDelete, "/circles/3/posts/11", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertNotCalled(t, "DeletePost", mock.Anything, mock.Anything)
}

func TestStartCircleCallRequiresCanStartCalls(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, manager := setupCircleRouter(repo)

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), nil).Once()
	rec := serve(router, http.MethodPost, "/circles/3/call", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, manager.Active())

	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanStartCalls: true}), nil).Once()
	rec = serve(router, http.MethodPost, "/circles/3/call", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, manager.Active())
	assert.Contains(t, rec.Body.String(), `"presets"`)
}

func TestOnlyOwnerPromotesAdmins(t *testing.T) {
	adminPerms := models.DefaultCirclePermissions(models.CircleAdmin)
	memberPerms := models.DefaultCirclePermissions(models.CircleRoleMember)

	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)
	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleAdmin, adminPerms), nil).Once()
	repo.On("GetMember", mock.Anything, 3, 5).Return(circleMember(5, models.CircleRoleMember, memberPerms), nil).Once()

	rec := serve(router, http.MethodPut, "/circles/3/members/5", `{"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "UpdatePermissions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	repo = new(mocks.CircleRepositoryMock)
	router, _ = setupCircleRouter(repo)
	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleOwner, adminPerms), nil).Once()
	repo.On("GetMember", mock.Anything, 3, 5).Return(circleMember(5, models.CircleRoleMember, memberPerms), nil).Once()
	repo.On("UpdatePermissions", mock.Anything, 3, 5, models.CircleAdmin, mock.Anything).Return(circleMember(5, models.CircleAdmin, adminPerms), nil).Once()

	rec = serve(router, http.MethodPut, "/circles/3/members/5", `{"role":"admin","can_invite":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateMemberRules(t *testing.T) {
	adminPerms := models.DefaultCirclePermissions(models.CircleAdmin)
	tests := []struct {
		name   string
		me     models.CircleMember
		target models.CircleMember
		body   string
		status int
	}{
		{"admin cannot touch admin", circleMember(1, models.CircleAdmin, adminPerms), circleMember(5, models.CircleAdmin, adminPerms), `{"can_post":false}`, http.StatusForbidden},
		{"member cannot manage", circleMember(1, models.CircleRoleMember, models.CirclePermissions{}), circleMember(5, models.CircleRoleMember, models.CirclePermissions{}), `{"can_post":true}`, http.StatusForbidden},
		{"nobody becomes owner", circleMember(1, models.CircleOwner, adminPerms), circleMember(5, models.CircleRoleMember, models.CirclePermissions{}), `{"role":"owner"}`, http.StatusBadRequest},
		{"unknown role", circleMember(1, models.CircleOwner, adminPerms), circleMember(5, models.CircleRoleMember, models.CirclePermissions{}), `{"role":"king"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mocks.CircleRepositoryMock)
			router, _ := setupCircleRouter(repo)
			repo.On("GetMember", mock.Anything, 3, 1).Return(tc.me, nil).Once()
			repo.On("GetMember", mock.Anything, 3, 5).Return(tc.target, nil).Once()

			rec := serve(router, http.MethodPut, "/circles/3/members/5", tc.body)

			assert.Equal(t, tc.status, rec.Code)
			repo.AssertNotCalled(t, "UpdatePermissions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAdminSetsMemberPermissions(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)
	repo.On("GetMember", mock.Anything, 3, 1).Return(circleMember(1, models.CircleAdmin, models.DefaultCirclePermissions(models.CircleAdmin)), nil).Once()
	repo.On("GetMember", mock.Anything, 3, 5).Return(circleMember(5, models.CircleRoleMember, models.CirclePermissions{CanPost: true}), nil).Once()
	want := models.CirclePermissions{CanPost: true, CanStartCalls: true}
	repo.On("UpdatePermissions", mock.Anything, 3, 5, models.CircleRoleMember, want).Return(circleMember(5, models.CircleRoleMember, want), nil).Once()

	rec := serve(router, http.MethodPut, "/circles/3/members/5", `{"can_post":true,"can_start_calls":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestRemoveCircleMember(t *testing.T) {
	repo := new(mocks.CircleRepositoryMock)
	router, _ := setupCircleRouter(repo)

	owner := circleMember(1, models.CircleOwner, models.DefaultCirclePermissions(models.CircleOwner))
	repo.On("GetMember", mock.Anything, 3, 1).Return(owner, nil).Twice()
	rec := serve(router, http.MethodDelete, "/circles/3/members/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo = new(mocks.CircleRepositoryMock)
	router, _ = setupCircleRouter(repo)
	me := circleMember(1, models.CircleRoleMember, models.CirclePermissions{CanPost: true})
	repo.On("GetMember", mock.Anything, 3, 1).Return(me, nil).Twice()
	repo.On("RemoveMember", mock.Anything, 3, 1).Return(nil).Once()
	rec = serve(router, http.MethodDelete, "/circles/3/members/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}
