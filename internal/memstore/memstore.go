// Package memstore is an in-memory groups.Store. Transactions are serialized
// and work on a copy of the data that replaces the live copy only on commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/thesisreg/backend/internal/apperr"
	"github.com/thesisreg/backend/internal/constants"
	"github.com/thesisreg/backend/models/common"
	"github.com/thesisreg/backend/models/thesis"
	"github.com/thesisreg/backend/pkg/groups"
)

type state struct {
	groups      map[uuid.UUID]thesis.Group
	members     []thesis.GroupMember // insertion order
	invites     []thesis.Invite
	theses      map[uuid.UUID]thesis.Thesis
	information map[uuid.UUID]common.Information
	students    map[uuid.UUID]common.StudentInfo
}

func newState() *state {
	return &state{
		groups:      map[uuid.UUID]thesis.Group{},
		theses:      map[uuid.UUID]thesis.Thesis{},
		information: map[uuid.UUID]common.Information{},
		students:    map[uuid.UUID]common.StudentInfo{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.groups {
		if v.ThesisID != nil {
			id := *v.ThesisID
			v.ThesisID = &id
		}
		c.groups[k] = v
	}
	c.members = append(c.members, s.members...)
	c.invites = append(c.invites, s.invites...)
	for k, v := range s.theses {
		c.theses[k] = v
	}
	for k, v := range s.information {
		c.information[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *state
}

func New() *Store {
	return &Store{data: newState()}
}

var _ groups.Store = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, fn func(repo groups.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&repository{data: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// PutProfile stores both profile rows of a student.
func (s *Store) PutProfile(info common.Information, student common.StudentInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.information[info.UserID] = info
	s.data.students[student.UserID] = student
}

func (s *Store) PutInformation(info common.Information) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.information[info.UserID] = info
}

func (s *Store) PutThesis(t thesis.Thesis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.theses[t.ID] = t
}

func (s *Store) PutInvite(invite thesis.Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.invites = append(s.data.invites, invite)
}

// Thesis returns the committed thesis row.
func (s *Store) Thesis(id uuid.UUID) (thesis.Thesis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.theses[id]
	return t, ok
}

// Group returns the committed group row.
func (s *Store) Group(id uuid.UUID) (thesis.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.data.groups[id]
	return g, ok
}

// CountInvites returns the committed invites of a group.
func (s *Store) CountInvites(groupID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, invite := range s.data.invites {
		if invite.GroupID == groupID {
			n++
		}
	}
	return n
}

// CountMembers returns the committed membership rows of a group.
func (s *Store) CountMembers(groupID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, member := range s.data.members {
		if member.GroupID == groupID {
			n++
		}
	}
	return n
}

type repository struct {
	data *state
}

func (r *repository) GetGroup(_ context.Context, id uuid.UUID) (*thesis.Group, error) {
	group, ok := r.data.groups[id]
	if !ok {
		return nil, nil
	}
	return &group, nil
}

func (r *repository) LockGroup(ctx context.Context, id uuid.UUID) (*thesis.Group, error) {
	return r.GetGroup(ctx, id)
}

func (r *repository) FindGroupByThesis(_ context.Context, thesisID uuid.UUID) (*thesis.Group, error) {
	for _, group := range r.data.groups {
		if group.ThesisID != nil && *group.ThesisID == thesisID {
			return &group, nil
		}
	}
	return nil, nil
}

func (r *repository) checkGroup(ctx context.Context, group *thesis.Group) error {
	if group.Quantity < 0 || group.Quantity > constants.MaxGroupMembers {
		return apperr.Conflict("group already has the maximum number of members")
	}
	if group.ThesisID != nil {
		if holder, _ := r.FindGroupByThesis(ctx, *group.ThesisID); holder != nil && holder.ID != group.ID {
			return apperr.Conflict("thesis is already registered by another group")
		}
	}
	return nil
}

func (r *repository) InsertGroup(ctx context.Context, group *thesis.Group) error {
	if _, exists := r.data.groups[group.ID]; exists {
		return fmt.Errorf("failed to insert group: duplicate id %s", group.ID)
	}
	if err := r.checkGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	r.data.groups[group.ID] = *group
	return nil
}

func (r *repository) UpdateGroup(ctx context.Context, group *thesis.Group) error {
	if _, exists := r.data.groups[group.ID]; !exists {
		return nil
	}
	if err := r.checkGroup(ctx, group); err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	stored := *group
	if group.ThesisID != nil {
		id := *group.ThesisID
		stored.ThesisID = &id
	}
	r.data.groups[group.ID] = stored
	return nil
}

func (r *repository) DeleteGroup(_ context.Context, id uuid.UUID) error {
	for _, member := range r.data.members {
		if member.GroupID == id {
			return fmt.Errorf("failed to delete group: members still reference %s", id)
		}
	}
	for _, invite := range r.data.invites {
		if invite.GroupID == id {
			return fmt.Errorf("failed to delete group: invites still reference %s", id)
		}
	}
	delete(r.data.groups, id)
	return nil
}

func (r *repository) IsMemberOfAnyGroup(_ context.Context, studentID uuid.UUID) (bool, error) {
	for _, member := range r.data.members {
		if member.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repository) GetMember(_ context.Context, groupID, studentID uuid.UUID) (*thesis.GroupMember, error) {
	for _, member := range r.data.members {
		if member.GroupID == groupID && member.StudentID == studentID {
			return &member, nil
		}
	}
	return nil, nil
}

func (r *repository) ListMembers(_ context.Context, groupID uuid.UUID) ([]thesis.GroupMember, error) {
	members := []thesis.GroupMember{}
	for _, member := range r.data.members {
		if member.GroupID == groupID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (r *repository) ListMembershipsByStudent(_ context.Context, studentID uuid.UUID) ([]thesis.GroupMember, error) {
	members := []thesis.GroupMember{}
	for _, member := range r.data.members {
		if member.StudentID == studentID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (r *repository) InsertMember(ctx context.Context, member *thesis.GroupMember) error {
	if _, ok := r.data.groups[member.GroupID]; !ok {
		return fmt.Errorf("failed to insert group member: group %s does not exist", member.GroupID)
	}
	if taken, _ := r.IsMemberOfAnyGroup(ctx, member.StudentID); taken {
		return fmt.Errorf("failed to insert group member: %w", apperr.Conflict("student already belongs to a group"))
	}
	r.data.members = append(r.data.members, *member)
	return nil
}

func (r *repository) SetMemberLeader(_ context.Context, groupID, studentID uuid.UUID, isLeader bool) error {
	for i := range r.data.members {
		if r.data.members[i].GroupID == groupID && r.data.members[i].StudentID == studentID {
			r.data.members[i].IsLeader = isLeader
		}
	}
	return nil
}

func (r *repository) DeleteMember(_ context.Context, groupID, studentID uuid.UUID) error {
	r.data.members = filter(r.data.members, func(m thesis.GroupMember) bool {
		return !(m.GroupID == groupID && m.StudentID == studentID)
	})
	return nil
}

func (r *repository) DeleteMembersByGroup(_ context.Context, groupID uuid.UUID) error {
	r.data.members = filter(r.data.members, func(m thesis.GroupMember) bool { return m.GroupID != groupID })
	return nil
}

func (r *repository) ListMemberDetails(ctx context.Context, groupID uuid.UUID) ([]thesis.MemberDetail, error) {
	members, _ := r.ListMembers(ctx, groupID)
	details := []thesis.MemberDetail{}
	for _, member := range members {
		info, hasInfo := r.data.information[member.StudentID]
		student, hasStudent := r.data.students[member.StudentID]
		if !hasInfo || !hasStudent {
			continue
		}
		details = append(details, thesis.MemberDetail{
			UserID:      member.StudentID,
			FullName:    info.FullName(),
			StudentCode: student.StudentCode,
			IsLeader:    member.IsLeader,
		})
	}
	sort.SliceStable(details, func(i, j int) bool {
		if details[i].IsLeader != details[j].IsLeader {
			return details[i].IsLeader
		}
		return details[i].StudentCode < details[j].StudentCode
	})
	return details, nil
}

func (r *repository) DeleteInvitesByGroup(_ context.Context, groupID uuid.UUID) error {
	r.data.invites = filter(r.data.invites, func(i thesis.Invite) bool { return i.GroupID != groupID })
	return nil
}

func (r *repository) GetThesis(_ context.Context, id uuid.UUID) (*thesis.Thesis, error) {
	t, ok := r.data.theses[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *repository) UpdateThesisStatus(_ context.Context, id uuid.UUID, status int) error {
	if t, ok := r.data.theses[id]; ok {
		t.Status = status
		r.data.theses[id] = t
	}
	return nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
