// Package groups is the persistence layer for thesis groups, their members,
// pending invites and the theses they register.
package groups

import (
	"context"

	"github.com/google/uuid"
	"github.com/thesisreg/backend/models/thesis"
)

// Repository is the set of statements available inside one transaction.
// Lookups return nil, nil when the row does not exist.
type Repository interface {
	GetGroup(ctx context.Context, id uuid.UUID) (*thesis.Group, error)
	// LockGroup is GetGroup that also holds the row until the transaction ends.
	LockGroup(ctx context.Context, id uuid.UUID) (*thesis.Group, error)
	FindGroupByThesis(ctx context.Context, thesisID uuid.UUID) (*thesis.Group, error)
	InsertGroup(ctx context.Context, group *thesis.Group) error
	UpdateGroup(ctx context.Context, group *thesis.Group) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	IsMemberOfAnyGroup(ctx context.Context, studentID uuid.UUID) (bool, error)
	GetMember(ctx context.Context, groupID, studentID uuid.UUID) (*thesis.GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]thesis.GroupMember, error)
	ListMembershipsByStudent(ctx context.Context, studentID uuid.UUID) ([]thesis.GroupMember, error)
	InsertMember(ctx context.Context, member *thesis.GroupMember) error
	SetMemberLeader(ctx context.Context, groupID, studentID uuid.UUID, isLeader bool) error
	DeleteMember(ctx context.Context, groupID, studentID uuid.UUID) error
	DeleteMembersByGroup(ctx context.Context, groupID uuid.UUID) error
	// ListMemberDetails skips members missing either profile row.
	ListMemberDetails(ctx context.Context, groupID uuid.UUID) ([]thesis.MemberDetail, error)

	DeleteInvitesByGroup(ctx context.Context, groupID uuid.UUID) error

	GetThesis(ctx context.Context, id uuid.UUID) (*thesis.Thesis, error)
	UpdateThesisStatus(ctx context.Context, id uuid.UUID, status int) error
}

// Store hands out transactions. fn's Repository is only valid during the call;
// the transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(repo Repository) error) error
}
