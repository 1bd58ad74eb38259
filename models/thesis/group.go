package thesis

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	LeaderID  uuid.UUID  `json:"leader_id" db:"leader_id"`
	Quantity  int        `json:"quantity" db:"quantity"`   // cached member count
	ThesisID  *uuid.UUID `json:"thesis_id" db:"thesis_id"` // set once, never cleared
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// HasThesis reports whether a thesis topic is registered for the group.
func (g *Group) HasThesis() bool {
	return g.ThesisID != nil
}

type GroupMember struct {
	ID        uuid.UUID `json:"id" db:"id"`
	GroupID   uuid.UUID `json:"group_id" db:"group_id"`
	StudentID uuid.UUID `json:"student_id" db:"student_id"`
	IsLeader  bool      `json:"is_leader" db:"is_leader"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// Invite is a pending membership offer. Only its lifetime is tied to the group.
type Invite struct {
	ID        uuid.UUID `json:"id" db:"id"`
	GroupID   uuid.UUID `json:"group_id" db:"group_id"`
	StudentID uuid.UUID `json:"student_id" db:"student_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
