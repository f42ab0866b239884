package stories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"social-service/internal/models"
)

// Command is a viewer control.
type Command string

const (
	CmdPause      Command = "pause"
	CmdResume     Command = "resume"
	CmdNext       Command = "next"
	CmdPrev       Command = "prev"
	CmdVideoEnded Command = "video_ended"
)

var ErrUnknownCommand = errors.New("unknown story command")

// ParseCommand validates a raw control name.
func ParseCommand(raw string) (Command, error) {
	switch c := Command(raw); c {
	case CmdPause, CmdResume, CmdNext, CmdPrev, CmdVideoEnded:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
}

// Frame is the playback state pushed to the viewer.
type Frame struct {
	UserID    int               `json:"user_id"`
	StoryID   int               `json:"story_id"`
	UserIndex int               `json:"user_index"`
	ItemIndex int               `json:"item_index"`
	MediaURL  string            `json:"media_url,omitempty"`
	MediaType models.StoryMedia `json:"media_type,omitempty"`
	Playback  string            `json:"playback,omitempty"`
	Progress  float64           `json:"progress"`
	Paused    bool              `json:"paused"`
	Finished  bool              `json:"finished"`
}

// ViewRecorder stores view receipts.
type ViewRecorder interface {
	MarkViewed(ctx context.Context, storyID, viewerID int) error
}

// Session drives a Player on a fixed tick and applies viewer controls.
type Session struct {
	player   *Player
	viewerID int
	views    ViewRecorder
	emit     func(Frame)
	cmds     chan Command
	lastSeen int
}

func NewSession(groups []models.UserStories, viewerID int, views ViewRecorder, emit func(Frame)) *Session {
	return &Session{
		player:   NewPlayer(groups),
		viewerID: viewerID,
		views:    views,
		emit:     emit,
		cmds:     make(chan Command, 8),
	}
}

// Control queues a command for the run loop.
func (s *Session) Control(ctx context.Context, cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run plays until every item was shown or ctx is done.
func (s *Session) Run(ctx context.Context, tick <-chan struct{}) {
	s.publish(ctx)
	for !s.player.Finished() {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			s.apply(cmd)
		case <-tick:
			s.player.Tick(TickInterval)
		}
		s.publish(ctx)
	}
}

// Ticker adapts a time.Ticker at TickInterval for Run.
func Ticker(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		t := time.NewTicker(TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *Session) apply(cmd Command) {
	switch cmd {
	case CmdPause:
		s.player.Pause()
	case CmdResume:
		s.player.Resume()
	case CmdNext:
		s.player.Next()
	case CmdPrev:
		s.player.Prev()
	case CmdVideoEnded:
		s.player.VideoEnded()
	}
}

func (s *Session) publish(ctx context.Context) {
	frame := Frame{Progress: s.player.Progress(), Paused: s.player.Paused(), Finished: s.player.Finished()}
	if cur, ok := s.player.Current(); ok {
		frame.UserID = cur.UserID
		frame.StoryID = cur.ID
		frame.UserIndex, frame.ItemIndex = s.player.Position()
		frame.MediaURL = cur.MediaURL
		frame.MediaType = cur.MediaType
		frame.Playback = cur.Playback()
		s.recordView(ctx, cur)
	}
	if s.emit != nil {
		s.emit(frame)
	}
}

func (s *Session) recordView(ctx context.Context, cur models.Story) {
	if cur.ID == s.lastSeen {
		return
	}
	s.lastSeen = cur.ID
	if s.views == nil || cur.UserID == s.viewerID {
		return
	}
	if err := s.views.MarkViewed(ctx, cur.ID, s.viewerID); err != nil {
		zap.L().Warn("story_view_failed", zap.Int("story_id", cur.ID), zap.Int("viewer_id", s.viewerID), zap.Error(err))
	}
}
