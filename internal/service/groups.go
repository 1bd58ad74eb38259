package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thesisreg/backend/internal/apperr"
	"github.com/thesisreg/backend/internal/constants"
	"github.com/thesisreg/backend/internal/logger"
	"github.com/thesisreg/backend/models/thesis"
	"github.com/thesisreg/backend/pkg/groups"
)

func (s *GroupService) IsMemberOfAnyGroup(ctx context.Context, userID uuid.UUID) (bool, error) {
	var member bool
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		var err error
		member, err = repo.IsMemberOfAnyGroup(ctx, userID)
		return err
	})
	return member, err
}

// CreateGroup creates a group led by userID, who becomes its only member.
func (s *GroupService) CreateGroup(ctx context.Context, name string, userID uuid.UUID) (*thesis.Group, error) {
	name = strings.TrimSpace(name)
	if err := s.validateName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group := &thesis.Group{
		ID:        uuid.New(),
		Name:      name,
		LeaderID:  userID,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		taken, err := repo.IsMemberOfAnyGroup(ctx, userID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("you already belong to another group and cannot create a new one")
		}

		if err := repo.InsertGroup(ctx, group); err != nil {
			return err
		}
		return repo.InsertMember(ctx, &thesis.GroupMember{
			ID:        uuid.New(),
			GroupID:   group.ID,
			StudentID: userID,
			IsLeader:  true,
			JoinedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Group created", "group_id", group.ID, "leader_id", userID)
	return group, nil
}

// AddMember puts studentID straight into the group, bypassing invites.
func (s *GroupService) AddMember(ctx context.Context, groupID, studentID, leaderID uuid.UUID) (*thesis.GroupMember, error) {
	var member *thesis.GroupMember
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := leadGroup(ctx, repo, groupID, leaderID, "add members")
		if err != nil {
			return err
		}
		if group.Quantity >= constants.MaxGroupMembers {
			return apperr.Conflict("group already has the maximum number of members")
		}

		taken, err := repo.IsMemberOfAnyGroup(ctx, studentID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("this student already belongs to another group")
		}

		now := time.Now().UTC()
		member = &thesis.GroupMember{
			ID:        uuid.New(),
			GroupID:   groupID,
			StudentID: studentID,
			JoinedAt:  now,
		}
		if err := repo.InsertMember(ctx, member); err != nil {
			return err
		}

		group.Quantity++
		group.UpdatedAt = now
		return repo.UpdateGroup(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Group member added", "group_id", groupID, "student_id", studentID)
	return member, nil
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, memberID, leaderID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := leadGroup(ctx, repo, groupID, leaderID, "remove members")
		if err != nil {
			return err
		}
		if memberID == leaderID {
			return apperr.Conflict("the group leader cannot be removed; transfer leadership first")
		}

		member, err := repo.GetMember(ctx, groupID, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return apperr.NotFound("this student is not a member of the group")
		}

		if err := repo.DeleteMember(ctx, groupID, memberID); err != nil {
			return err
		}
		group.Quantity--
		group.UpdatedAt = time.Now().UTC()
		return repo.UpdateGroup(ctx, group)
	})
	if err != nil {
		return err
	}

	logger.LogInfo("Group member removed", "group_id", groupID, "student_id", memberID)
	return nil
}

func (s *GroupService) GetMembers(ctx context.Context, groupID uuid.UUID) ([]thesis.GroupMember, error) {
	var members []thesis.GroupMember
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		var err error
		members, err = repo.ListMembers(ctx, groupID)
		return err
	})
	return members, err
}

// TransferLeader hands leadership to another member. Every other leader flag
// in the group is cleared so exactly one member leads afterwards.
func (s *GroupService) TransferLeader(ctx context.Context, groupID, newLeaderID, currentLeaderID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := leadGroup(ctx, repo, groupID, currentLeaderID, "transfer leadership")
		if err != nil {
			return err
		}

		members, err := repo.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		found := false
		for _, member := range members {
			if member.StudentID == newLeaderID {
				found = true
				break
			}
		}
		if !found {
			return apperr.NotFound("the new leader is not a member of the group")
		}

		for _, member := range members {
			if member.IsLeader && member.StudentID != newLeaderID {
				if err := repo.SetMemberLeader(ctx, groupID, member.StudentID, false); err != nil {
					return err
				}
			}
		}
		if err := repo.SetMemberLeader(ctx, groupID, newLeaderID, true); err != nil {
			return err
		}

		group.LeaderID = newLeaderID
		group.UpdatedAt = time.Now().UTC()
		return repo.UpdateGroup(ctx, group)
	})
	if err != nil {
		return err
	}

	logger.LogInfo("Group leadership transferred", "group_id", groupID, "from", currentLeaderID, "to", newLeaderID)
	return nil
}

// GetAllGroupsForUser lists every group userID belongs to with member details.
func (s *GroupService) GetAllGroupsForUser(ctx context.Context, userID uuid.UUID) ([]thesis.GroupWithMembers, error) {
	result := []thesis.GroupWithMembers{}
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		memberships, err := repo.ListMembershipsByStudent(ctx, userID)
		if err != nil {
			return err
		}

		for _, membership := range memberships {
			group, err := repo.GetGroup(ctx, membership.GroupID)
			if err != nil {
				return err
			}
			if group == nil {
				continue
			}
			details, err := repo.ListMemberDetails(ctx, group.ID)
			if err != nil {
				return err
			}
			result = append(result, withMembers(group, details))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *GroupService) UpdateGroupName(ctx context.Context, groupID uuid.UUID, newName string, userID uuid.UUID) (*thesis.Group, error) {
	newName = strings.TrimSpace(newName)

	var group *thesis.Group
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		var err error
		group, err = leadGroup(ctx, repo, groupID, userID, "rename the group")
		if err != nil {
			return err
		}
		if err := s.validateName(newName); err != nil {
			return err
		}

		group.Name = newName
		group.UpdatedAt = time.Now().UTC()
		return repo.UpdateGroup(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Group renamed", "group_id", groupID, "name", newName)
	return group, nil
}

// GetDetailedMembersOfGroup lists members that have both profile records.
func (s *GroupService) GetDetailedMembersOfGroup(ctx context.Context, groupID uuid.UUID) ([]thesis.MemberDetail, error) {
	var details []thesis.MemberDetail
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := repo.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return apperr.NotFound("group not found")
		}
		details, err = repo.ListMemberDetails(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *GroupService) GetGroupWithDetailedMembers(ctx context.Context, groupID uuid.UUID) (*thesis.GroupWithMembers, error) {
	var view thesis.GroupWithMembers
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := repo.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return apperr.NotFound("group not found")
		}
		details, err := repo.ListMemberDetails(ctx, groupID)
		if err != nil {
			return err
		}
		view = withMembers(group, details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteGroup removes a group with no registered thesis together with its
// invites and memberships.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		group, err := leadGroup(ctx, repo, groupID, userID, "delete the group")
		if err != nil {
			return err
		}
		if group.HasThesis() {
			return apperr.Conflict("a group with a registered thesis cannot be deleted")
		}

		if err := repo.DeleteInvitesByGroup(ctx, groupID); err != nil {
			return err
		}
		if err := repo.DeleteMembersByGroup(ctx, groupID); err != nil {
			return err
		}
		return repo.DeleteGroup(ctx, groupID)
	})
	if err != nil {
		return err
	}

	logger.LogInfo("Group deleted", "group_id", groupID, "leader_id", userID)
	return nil
}

// RegisterThesisForGroup binds a free thesis to the group and marks it registered.
func (s *GroupService) RegisterThesisForGroup(ctx context.Context, groupID, thesisID, userID uuid.UUID) (*thesis.Group, error) {
	var group *thesis.Group
	err := s.store.WithTx(ctx, func(repo groups.Repository) error {
		var err error
		group, err = leadGroup(ctx, repo, groupID, userID, "register a thesis")
		if err != nil {
			return err
		}
		if group.HasThesis() {
			return apperr.Conflict("this group has already registered another thesis")
		}

		topic, err := repo.GetThesis(ctx, thesisID)
		if err != nil {
			return err
		}
		if topic == nil {
			return apperr.NotFound("thesis not found")
		}

		holder, err := repo.FindGroupByThesis(ctx, thesisID)
		if err != nil {
			return err
		}
		if holder != nil {
			return apperr.Conflict("this thesis is already registered by another group")
		}

		group.ThesisID = &thesisID
		group.UpdatedAt = time.Now().UTC()
		if err := repo.UpdateGroup(ctx, group); err != nil {
			return err
		}
		return repo.UpdateThesisStatus(ctx, thesisID, constants.ThesisStatusRegistered)
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Thesis registered", "group_id", groupID, "thesis_id", thesisID)
	return group, nil
}
