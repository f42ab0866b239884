package models

import "time"

// CircleRole is a member's role inside a circle.
type CircleRole string

const (
	CircleOwner      CircleRole = "owner"
	CircleAdmin      CircleRole = "admin"
	CircleRoleMember CircleRole = "member"
)

// Valid reports whether r is a known circle role.
func (r CircleRole) Valid() bool {
	return r == CircleOwner || r == CircleAdmin || r == CircleRoleMember
}

// Circle is a named private group.
type Circle struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	OwnerID     int       `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CirclePermissions are the role-gated abilities of a circle member.
type CirclePermissions struct {
	CanPost        bool `db:"can_post" json:"can_post"`
	CanInvite      bool `db:"can_invite" json:"can_invite"`
	CanManagePosts bool `db:"can_manage_posts" json:"can_manage_posts"`
	CanStartCalls  bool `db:"can_start_calls" json:"can_start_calls"`
}

// DefaultCirclePermissions returns the permissions a role starts with.
func DefaultCirclePermissions(role CircleRole) CirclePermissions {
	switch role {
	case CircleOwner, CircleAdmin:
		return CirclePermissions{CanPost: true, CanInvite: true, CanManagePosts: true, CanStartCalls: true}
	default:
		return CirclePermissions{CanPost: true}
	}
}

// CircleMember is a circle membership row.
type CircleMember struct {
	CircleID int        `db:"circle_id" json:"circle_id"`
	UserID   int        `db:"user_id" json:"user_id"`
	Role     CircleRole `db:"role" json:"role"`
	CirclePermissions
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// CirclePost is a post inside a circle.
type CirclePost struct {
	ID        int       `db:"id" json:"id"`
	CircleID  int       `db:"circle_id" json:"circle_id"`
	AuthorID  int       `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	MediaURL  *string   `db:"media_url" json:"media_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
