package stories

import (
	"context"
	"time"

	"go.uber.org/zap"

	"social-service/internal/models"
)

// Source lists the stories that have not expired at now.
type Source interface {
	ActiveStories(ctx context.Context, now time.Time) ([]models.Story, error)
}

// Names resolves user ids to usernames.
type Names interface {
	Usernames(ctx context.Context, ids []int) (map[int]string, error)
}

// Feed loads the active stories grouped per author, the viewer's own first.
// A failed username lookup leaves names empty.
func Feed(ctx context.Context, src Source, names Names, viewerID int, now time.Time) ([]models.UserStories, error) {
	active, err := src.ActiveStories(ctx, now)
	if err != nil {
		return nil, err
	}
	groups := models.GroupStoriesByUser(active, viewerID)
	if len(groups) == 0 || names == nil {
		return groups, nil
	}

	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.UserID)
	}
	byID, err := names.Usernames(ctx, ids)
	if err != nil {
		zap.L().Warn("story_usernames_failed", zap.Error(err))
		return groups, nil
	}
	for i := range groups {
		groups[i].Username = byID[groups[i].UserID]
	}
	return groups, nil
}
