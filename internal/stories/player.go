// Package stories sequences ephemeral story items per author.
package stories

import (
	"time"

	"social-service/internal/models"
)

const (
	TickInterval  = 100 * time.Millisecond
	ImageDuration = 5 * time.Second
	VideoDuration = 10 * time.Second
)

// Duration returns how long item stays on screen. Live items have no
// duration and never auto-advance.
func Duration(item models.Story) time.Duration {
	switch item.MediaType {
	case models.StoryLive:
		return 0
	case models.StoryVideo:
		if item.DurationMS != nil && *item.DurationMS > 0 {
			return time.Duration(*item.DurationMS) * time.Millisecond
		}
		return VideoDuration
	default:
		return ImageDuration
	}
}

// Player is the playback position over a list of author groups. It is not
// safe for concurrent use; Session serializes access.
type Player struct {
	groups   []models.UserStories
	user     int
	item     int
	elapsed  time.Duration
	paused   bool
	finished bool
}

// NewPlayer starts at the first item of the first non-empty group.
func NewPlayer(groups []models.UserStories) *Player {
	p := &Player{}
	for _, g := range groups {
		if len(g.Stories) > 0 {
			p.groups = append(p.groups, g)
		}
	}
	p.finished = len(p.groups) == 0
	return p
}

// Current returns the item on screen.
func (p *Player) Current() (models.Story, bool) {
	if p.finished {
		return models.Story{}, false
	}
	return p.groups[p.user].Stories[p.item], true
}

// Position returns the author index and item index.
func (p *Player) Position() (user, item int) { return p.user, p.item }

// Progress is the percentage of the current item already shown.
func (p *Player) Progress() float64 {
	cur, ok := p.Current()
	if !ok {
		return 100
	}
	d := Duration(cur)
	if d == 0 {
		return 0
	}
	pct := float64(p.elapsed) / float64(d) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (p *Player) Paused() bool   { return p.paused }
func (p *Player) Finished() bool { return p.finished }

// Tick advances progress by d and reports whether the item changed.
func (p *Player) Tick(d time.Duration) bool {
	cur, ok := p.Current()
	if !ok || p.paused {
		return false
	}
	total := Duration(cur)
	if total == 0 {
		return false
	}
	p.elapsed += d
	if p.elapsed < total {
		return false
	}
	p.Next()
	return true
}

// Next moves to the following item, then to the next author, then finishes.
func (p *Player) Next() {
	if p.finished {
		return
	}
	p.elapsed = 0
	if p.item+1 < len(p.groups[p.user].Stories) {
		p.item++
		return
	}
	if p.user+1 < len(p.groups) {
		p.user++
		p.item = 0
		return
	}
	p.finished = true
}

// Prev moves back one item, crossing into the previous author's last item.
// At the very first item it restarts that item.
func (p *Player) Prev() {
	if p.finished {
		return
	}
	p.elapsed = 0
	if p.item > 0 {
		p.item--
		return
	}
	if p.user > 0 {
		p.user--
		p.item = len(p.groups[p.user].Stories) - 1
	}
}

func (p *Player) Pause()  { p.paused = true }
func (p *Player) Resume() { p.paused = false }

// VideoEnded advances when a video item finishes before its timer does.
func (p *Player) VideoEnded() bool {
	cur, ok := p.Current()
	if !ok || cur.MediaType != models.StoryVideo {
		return false
	}
	p.Next()
	return true
}
