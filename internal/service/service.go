// Package service implements the thesis group operations: membership,
// leadership, naming, deletion and thesis registration. Each exported method
// runs in a single store transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/thesisreg/backend/internal/apperr"
	"github.com/thesisreg/backend/internal/constants"
	"github.com/thesisreg/backend/models/thesis"
	"github.com/thesisreg/backend/pkg/groups"
)

type GroupService struct {
	store    groups.Store
	validate *validator.Validate
}

func NewGroupService(store groups.Store) (*GroupService, error) {
	if store == nil {
		return nil, errors.New("new group service: store is nil")
	}
	return &GroupService{store: store, validate: validator.New()}, nil
}

func (s *GroupService) validateName(name string) error {
	rule := fmt.Sprintf("required,max=%d", constants.MaxGroupNameLength)
	if err := s.validate.Var(name, rule); err != nil || !utf8.ValidString(name) || strings.ContainsRune(name, 0) {
		return apperr.Invalid(fmt.Sprintf("group name is required and must be at most %d characters", constants.MaxGroupNameLength))
	}
	return nil
}

// leadGroup locks the group and checks that userID leads it.
func leadGroup(ctx context.Context, repo groups.Repository, groupID, userID uuid.UUID, action string) (*thesis.Group, error) {
	group, err := repo.LockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperr.NotFound("group not found")
	}
	if group.LeaderID != userID {
		return nil, apperr.Forbidden("only the group leader can " + action)
	}
	return group, nil
}

func withMembers(group *thesis.Group, members []thesis.MemberDetail) thesis.GroupWithMembers {
	return thesis.GroupWithMembers{
		ID:       group.ID,
		Name:     group.Name,
		LeaderID: group.LeaderID,
		Quantity: group.Quantity,
		ThesisID: group.ThesisID,
		Members:  members,
	}
}
