package thesis

import "github.com/google/uuid"

// MemberDetail joins a membership with the member's profile rows.
type MemberDetail struct {
	UserID      uuid.UUID `json:"user_id"`
	FullName    string    `json:"full_name"`
	StudentCode string    `json:"student_code"`
	IsLeader    bool      `json:"is_leader"`
}

type GroupWithMembers struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	LeaderID uuid.UUID      `json:"leader_id"`
	Quantity int            `json:"quantity"`
	ThesisID *uuid.UUID     `json:"thesis_id"`
	Members  []MemberDetail `json:"members"`
}
