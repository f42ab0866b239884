package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetChat(ctx context.Context, userID int, friendID int) (models.Chat, error) {
	args := m.Called(ctx, userID, friendID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) HideChatForUser(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) UnhideChatForUser(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateChatMessage(ctx context.Context, chatID int, senderID int, body models.MessageBody) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetChatMessagesForUser(ctx context.Context, chatID int, userID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessageForUser(ctx context.Context, messageID int, isSender bool) error {
	args := m.Called(ctx, messageID, isSender)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteMessageForAll(ctx context.Context, messageID int, userID int) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name, description string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, ownerID, name, description, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) MemberRole(ctx context.Context, groupID int, userID int) (models.GroupRole, error) {
	args := m.Called(ctx, groupID, userID)
	var role models.GroupRole
	if val := args.Get(0); val != nil {
		role = val.(models.GroupRole)
	}
	return role, args.Error(1)
}

func (m *GroupRepositoryMock) ListMembers(ctx context.Context, groupID int) ([]models.GroupMemberRecord, error) {
	args := m.Called(ctx, groupID)
	var members []models.GroupMemberRecord
	if val := args.Get(0); val != nil {
		members = val.([]models.GroupMemberRecord)
	}
	return members, args.Error(1)
}

func (m *GroupRepositoryMock) AddMember(ctx context.Context, groupID int, userID int, role models.GroupRole) error {
	args := m.Called(ctx, groupID, userID, role)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID int, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) ChangeRole(ctx context.Context, groupID int, userID int, role models.GroupRole) error {
	args := m.Called(ctx, groupID, userID, role)
	return args.Error(0)
}

func (m *GroupRepositoryMock) UpdateSettings(ctx context.Context, groupID int, settings models.GroupSettings) (models.Group, error) {
	args := m.Called(ctx, groupID, settings)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) Dissolve(ctx context.Context, groupID int) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) Leave(ctx context.Context, groupID int, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) CreateGroupMessage(ctx context.Context, groupID int, senderID int, body models.MessageBody) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, body)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.GroupMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.GroupMessage)
	}
	return msgs, args.Error(1)
}

func (m *GroupMessageRepositoryMock) GetGroupMessage(ctx context.Context, messageID int) (models.GroupMessage, error) {
	args := m.Called(ctx, messageID)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) EditGroupMessage(ctx context.Context, messageID int, senderID int, content string) (models.GroupMessage, error) {
	args := m.Called(ctx, messageID, senderID, content)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) DeleteForAll(ctx context.Context, messageID int, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

type ListingRepositoryMock struct {
	mock.Mock
}

func (m *ListingRepositoryMock) CreateListing(ctx context.Context, l models.Listing) (models.Listing, error) {
	args := m.Called(ctx, l)
	var out models.Listing
	if val := args.Get(0); val != nil {
		out = val.(models.Listing)
	}
	return out, args.Error(1)
}

func (m *ListingRepositoryMock) GetListing(ctx context.Context, id int) (models.Listing, error) {
	args := m.Called(ctx, id)
	var out models.Listing
	if val := args.Get(0); val != nil {
		out = val.(models.Listing)
	}
	return out, args.Error(1)
}

func (m *ListingRepositoryMock) ListListings(ctx context.Context, f repositories.ListingFilter) ([]models.Listing, error) {
	args := m.Called(ctx, f)
	var out []models.Listing
	if val := args.Get(0); val != nil {
		out = val.([]models.Listing)
	}
	return out, args.Error(1)
}

func (m *ListingRepositoryMock) UpdateListing(ctx context.Context, id, sellerID int, upd models.ListingUpdate) (models.Listing, error) {
	args := m.Called(ctx, id, sellerID, upd)
	var out models.Listing
	if val := args.Get(0); val != nil {
		out = val.(models.Listing)
	}
	return out, args.Error(1)
}

func (m *ListingRepositoryMock) MarkSold(ctx context.Context, id, sellerID int) (models.Listing, error) {
	args := m.Called(ctx, id, sellerID)
	var out models.Listing
	if val := args.Get(0); val != nil {
		out = val.(models.Listing)
	}
	return out, args.Error(1)
}

func (m *ListingRepositoryMock) DeleteListing(ctx context.Context, id, sellerID int) error {
	args := m.Called(ctx, id, sellerID)
	return args.Error(0)
}

type TicketRepositoryMock struct {
	mock.Mock
}

func (m *TicketRepositoryMock) CreateTicket(ctx context.Context, userID int, subject, description string, priority models.TicketPriority) (models.SupportTicket, error) {
	args := m.Called(ctx, userID, subject, description, priority)
	var out models.SupportTicket
	if val := args.Get(0); val != nil {
		out = val.(models.SupportTicket)
	}
	return out, args.Error(1)
}

func (m *TicketRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.SupportTicket, error) {
	args := m.Called(ctx, userID)
	var out []models.SupportTicket
	if val := args.Get(0); val != nil {
		out = val.([]models.SupportTicket)
	}
	return out, args.Error(1)
}

func (m *TicketRepositoryMock) ListAll(ctx context.Context, f repositories.TicketFilter) ([]models.SupportTicket, error) {
	args := m.Called(ctx, f)
	var out []models.SupportTicket
	if val := args.Get(0); val != nil {
		out = val.([]models.SupportTicket)
	}
	return out, args.Error(1)
}

func (m *TicketRepositoryMock) UpdateTicket(ctx context.Context, id int, upd models.TicketUpdate) (models.SupportTicket, error) {
	args := m.Called(ctx, id, upd)
	var out models.SupportTicket
	if val := args.Get(0); val != nil {
		out = val.(models.SupportTicket)
	}
	return out, args.Error(1)
}

type StatsRepositoryMock struct {
	mock.Mock
}

func (m *StatsRepositoryMock) Dashboard(ctx context.Context, now time.Time) (models.DashboardStats, error) {
	args := m.Called(ctx, now)
	var out models.DashboardStats
	if val := args.Get(0); val != nil {
		out = val.(models.DashboardStats)
	}
	return out, args.Error(1)
}

type StoryRepositoryMock struct {
	mock.Mock
}

func (m *StoryRepositoryMock) CreateStory(ctx context.Context, story models.Story) (models.Story, error) {
	args := m.Called(ctx, story)
	var out models.Story
	if val := args.Get(0); val != nil {
		out = val.(models.Story)
	}
	return out, args.Error(1)
}

func (m *StoryRepositoryMock) GetStory(ctx context.Context, storyID int) (models.Story, error) {
	args := m.Called(ctx, storyID)
	var out models.Story
	if val := args.Get(0); val != nil {
		out = val.(models.Story)
	}
	return out, args.Error(1)
}

func (m *StoryRepositoryMock) ActiveStories(ctx context.Context, now time.Time) ([]models.Story, error) {
	args := m.Called(ctx, now)
	var out []models.Story
	if val := args.Get(0); val != nil {
		out = val.([]models.Story)
	}
	return out, args.Error(1)
}

func (m *StoryRepositoryMock) MarkViewed(ctx context.Context, storyID, viewerID int) error {
	args := m.Called(ctx, storyID, viewerID)
	return args.Error(0)
}

func (m *StoryRepositoryMock) Viewers(ctx context.Context, storyID int) ([]models.StoryView, error) {
	args := m.Called(ctx, storyID)
	var out []models.StoryView
	if val := args.Get(0); val != nil {
		out = val.([]models.StoryView)
	}
	return out, args.Error(1)
}

func (m *StoryRepositoryMock) React(ctx context.Context, storyID, userID int, emoji string) (models.StoryReaction, error) {
	args := m.Called(ctx, storyID, userID, emoji)
	var out models.StoryReaction
	if val := args.Get(0); val != nil {
		out = val.(models.StoryReaction)
	}
	return out, args.Error(1)
}

func (m *StoryRepositoryMock) DeleteStory(ctx context.Context, storyID, ownerID int) error {
	args := m.Called(ctx, storyID, ownerID)
	return args.Error(0)
}

func (m *StoryRepositoryMock) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	var n int64
	if val := args.Get(0); val != nil {
		n = val.(int64)
	}
	return n, args.Error(1)
}

type CircleRepositoryMock struct {
	mock.Mock
}

func (m *CircleRepositoryMock) CreateCircle(ctx context.Context, ownerID int, name, description string, imageURL *string) (models.Circle, error) {
	args := m.Called(ctx, ownerID, name, description, imageURL)
	var out models.Circle
	if val := args.Get(0); val != nil {
		out = val.(models.Circle)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) GetCircle(ctx context.Context, circleID int) (models.Circle, error) {
	args := m.Called(ctx, circleID)
	var out models.Circle
	if val := args.Get(0); val != nil {
		out = val.(models.Circle)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) ListCirclesForUser(ctx context.Context, userID int) ([]models.Circle, error) {
	args := m.Called(ctx, userID)
	var out []models.Circle
	if val := args.Get(0); val != nil {
		out = val.([]models.Circle)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) GetMember(ctx context.Context, circleID, userID int) (models.CircleMember, error) {
	args := m.Called(ctx, circleID, userID)
	var out models.CircleMember
	if val := args.Get(0); val != nil {
		out = val.(models.CircleMember)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) ListMembers(ctx context.Context, circleID int) ([]models.CircleMember, error) {
	args := m.Called(ctx, circleID)
	var out []models.CircleMember
	if val := args.Get(0); val != nil {
		out = val.([]models.CircleMember)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) AddMember(ctx context.Context, circleID, userID int, role models.CircleRole) (models.CircleMember, error) {
	args := m.Called(ctx, circleID, userID, role)
	var out models.CircleMember
	if val := args.Get(0); val != nil {
		out = val.(models.CircleMember)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) UpdatePermissions(ctx context.Context, circleID, userID int, role models.CircleRole, perms models.CirclePermissions) (models.CircleMember, error) {
	args := m.Called(ctx, circleID, userID, role, perms)
	var out models.CircleMember
	if val := args.Get(0); val != nil {
		out = val.(models.CircleMember)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) RemoveMember(ctx context.Context, circleID, userID int) error {
	args := m.Called(ctx, circleID, userID)
	return args.Error(0)
}

func (m *CircleRepositoryMock) CreatePost(ctx context.Context, circleID, authorID int, content string, mediaURL *string) (models.CirclePost, error) {
	args := m.Called(ctx, circleID, authorID, content, mediaURL)
	var out models.CirclePost
	if val := args.Get(0); val != nil {
		out = val.(models.CirclePost)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) ListPosts(ctx context.Context, circleID int) ([]models.CirclePost, error) {
	args := m.Called(ctx, circleID)
	var out []models.CirclePost
	if val := args.Get(0); val != nil {
		out = val.([]models.CirclePost)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) GetPost(ctx context.Context, postID int) (models.CirclePost, error) {
	args := m.Called(ctx, postID)
	var out models.CirclePost
	if val := args.Get(0); val != nil {
		out = val.(models.CirclePost)
	}
	return out, args.Error(1)
}

func (m *CircleRepositoryMock) DeletePost(ctx context.Context, postID int) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

type ReelRepositoryMock struct {
	mock.Mock
}

func (m *ReelRepositoryMock) CreateReel(ctx context.Context, userID int, videoURL, caption string) (models.Reel, error) {
	args := m.Called(ctx, userID, videoURL, caption)
	var out models.Reel
	if val := args.Get(0); val != nil {
		out = val.(models.Reel)
	}
	return out, args.Error(1)
}

func (m *ReelRepositoryMock) Feed(ctx context.Context, viewerID, limit, offset int) ([]models.Reel, error) {
	args := m.Called(ctx, viewerID, limit, offset)
	var out []models.Reel
	if val := args.Get(0); val != nil {
		out = val.([]models.Reel)
	}
	return out, args.Error(1)
}

func (m *ReelRepositoryMock) ToggleLike(ctx context.Context, reelID, userID int) (bool, int, error) {
	args := m.Called(ctx, reelID, userID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *ReelRepositoryMock) AddView(ctx context.Context, reelID int) (int, error) {
	args := m.Called(ctx, reelID)
	return args.Int(0), args.Error(1)
}

func (m *ReelRepositoryMock) DeleteReel(ctx context.Context, reelID, ownerID int) error {
	args := m.Called(ctx, reelID, ownerID)
	return args.Error(0)
}

type LiveRepositoryMock struct {
	mock.Mock
}

func (m *LiveRepositoryMock) StartStream(ctx context.Context, hostID int, title, streamKey string) (models.LiveStream, error) {
	args := m.Called(ctx, hostID, title, streamKey)
	var out models.LiveStream
	if val := args.Get(0); val != nil {
		out = val.(models.LiveStream)
	}
	return out, args.Error(1)
}

func (m *LiveRepositoryMock) EndStream(ctx context.Context, streamID, hostID int) (models.LiveStream, error) {
	args := m.Called(ctx, streamID, hostID)
	var out models.LiveStream
	if val := args.Get(0); val != nil {
		out = val.(models.LiveStream)
	}
	return out, args.Error(1)
}

func (m *LiveRepositoryMock) GetStream(ctx context.Context, streamID int) (models.LiveStream, error) {
	args := m.Called(ctx, streamID)
	var out models.LiveStream
	if val := args.Get(0); val != nil {
		out = val.(models.LiveStream)
	}
	return out, args.Error(1)
}

func (m *LiveRepositoryMock) ListLive(ctx context.Context) ([]models.LiveStream, error) {
	args := m.Called(ctx)
	var out []models.LiveStream
	if val := args.Get(0); val != nil {
		out = val.([]models.LiveStream)
	}
	return out, args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) CreateProfile(ctx context.Context, username, displayName, role string) (models.Profile, error) {
	args := m.Called(ctx, username, displayName, role)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	args := m.Called(ctx, username)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (models.Profile, error) {
	args := m.Called(ctx, userID, upd)
	var out models.Profile
	if val := args.Get(0); val != nil {
		out = val.(models.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) Usernames(ctx context.Context, ids []int) (map[int]string, error) {
	args := m.Called(ctx, ids)
	var out map[int]string
	if val := args.Get(0); val != nil {
		out = val.(map[int]string)
	}
	return out, args.Error(1)
}
