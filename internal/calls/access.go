package calls

import (
	"context"
	"errors"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

type chatMembers interface {
	IsParticipant(ctx context.Context, chatID int, userID int) (bool, error)
}

type groupMembers interface {
	IsMember(ctx context.Context, groupID int, userID int) (bool, error)
}

type circleMembers interface {
	GetMember(ctx context.Context, circleID, userID int) (models.CircleMember, error)
}

// Access answers whether a user belongs to the conversation a call runs in.
type Access struct {
	Chats   chatMembers
	Groups  groupMembers
	Circles circleMembers
}

func (a Access) Allowed(ctx context.Context, call Call, userID int) (bool, error) {
	switch call.Kind {
	case KindDirect:
		return a.Chats.IsParticipant(ctx, call.ResourceID, userID)
	case KindGroup:
		return a.Groups.IsMember(ctx, call.ResourceID, userID)
	case KindCircle:
		_, err := a.Circles.GetMember(ctx, call.ResourceID, userID)
		if errors.Is(err, repositories.ErrNotMember) {
			return false, nil
		}
		return err == nil, err
	}
	return false, nil
}
