package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/thesisreg/backend/internal/apperr"
	"github.com/thesisreg/backend/models/common"
	"github.com/thesisreg/backend/models/thesis"
	"github.com/thesisreg/backend/pkg/db"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const groupColumns = "id, name, leader_id, quantity, thesis_id, created_at, updated_at"

const memberColumns = "id, group_id, student_id, is_leader, joined_at"

// PgStore is the PostgreSQL Store.
type PgStore struct {
	beginner db.TxBeginner
}

func NewPgStore(beginner db.TxBeginner) *PgStore {
	return &PgStore{beginner: beginner}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(repo Repository) error) error {
	return db.RunInTx(ctx, s.beginner, func(tx pgx.Tx) error {
		return fn(&pgRepository{q: tx})
	})
}

type pgRepository struct {
	q db.Querier
}

var _ Repository = (*pgRepository)(nil)

func scanGroup(row pgx.Row) (*thesis.Group, error) {
	group := &thesis.Group{}
	var thesisID uuid.NullUUID
	err := row.Scan(&group.ID, &group.Name, &group.LeaderID, &group.Quantity, &thesisID, &group.CreatedAt, &group.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if thesisID.Valid {
		id := thesisID.UUID
		group.ThesisID = &id
	}
	return group, nil
}

func scanMember(row pgx.Row) (*thesis.GroupMember, error) {
	member := &thesis.GroupMember{}
	err := row.Scan(&member.ID, &member.GroupID, &member.StudentID, &member.IsLeader, &member.JoinedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}
	return member, nil
}

func (r *pgRepository) GetGroup(ctx context.Context, id uuid.UUID) (*thesis.Group, error) {
	return scanGroup(r.q.QueryRow(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = $1", id))
}

func (r *pgRepository) LockGroup(ctx context.Context, id uuid.UUID) (*thesis.Group, error) {
	return scanGroup(r.q.QueryRow(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = $1 FOR UPDATE", id))
}

func (r *pgRepository) FindGroupByThesis(ctx context.Context, thesisID uuid.UUID) (*thesis.Group, error) {
	return scanGroup(r.q.QueryRow(ctx, "SELECT "+groupColumns+" FROM groups WHERE thesis_id = $1 LIMIT 1", thesisID))
}

func (r *pgRepository) InsertGroup(ctx context.Context, group *thesis.Group) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO groups ("+groupColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		group.ID, group.Name, group.LeaderID, group.Quantity, group.ThesisID, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", translate(err))
	}
	return nil
}

func (r *pgRepository) UpdateGroup(ctx context.Context, group *thesis.Group) error {
	_, err := r.q.Exec(ctx,
		"UPDATE groups SET name = $2, leader_id = $3, quantity = $4, thesis_id = $5, updated_at = $6 WHERE id = $1",
		group.ID, group.Name, group.LeaderID, group.Quantity, group.ThesisID, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", translate(err))
	}
	return nil
}

func (r *pgRepository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM groups WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (r *pgRepository) IsMemberOfAnyGroup(ctx context.Context, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM group_members WHERE student_id = $1)", studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return exists, nil
}

func (r *pgRepository) GetMember(ctx context.Context, groupID, studentID uuid.UUID) (*thesis.GroupMember, error) {
	return scanMember(r.q.QueryRow(ctx,
		"SELECT "+memberColumns+" FROM group_members WHERE group_id = $1 AND student_id = $2",
		groupID, studentID,
	))
}

func (r *pgRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]thesis.GroupMember, error) {
	return r.listMembers(ctx, "SELECT "+memberColumns+" FROM group_members WHERE group_id = $1 ORDER BY joined_at", groupID)
}

func (r *pgRepository) ListMembershipsByStudent(ctx context.Context, studentID uuid.UUID) ([]thesis.GroupMember, error) {
	return r.listMembers(ctx, "SELECT "+memberColumns+" FROM group_members WHERE student_id = $1 ORDER BY joined_at", studentID)
}

func (r *pgRepository) listMembers(ctx context.Context, query string, arg uuid.UUID) ([]thesis.GroupMember, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	members := []thesis.GroupMember{}
	for rows.Next() {
		var member thesis.GroupMember
		if err := rows.Scan(&member.ID, &member.GroupID, &member.StudentID, &member.IsLeader, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return members, nil
}

func (r *pgRepository) InsertMember(ctx context.Context, member *thesis.GroupMember) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO group_members ("+memberColumns+") VALUES ($1, $2, $3, $4, $5)",
		member.ID, member.GroupID, member.StudentID, member.IsLeader, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", translate(err))
	}
	return nil
}

func (r *pgRepository) SetMemberLeader(ctx context.Context, groupID, studentID uuid.UUID, isLeader bool) error {
	_, err := r.q.Exec(ctx,
		"UPDATE group_members SET is_leader = $3 WHERE group_id = $1 AND student_id = $2",
		groupID, studentID, isLeader,
	)
	if err != nil {
		return fmt.Errorf("failed to update group member: %w", err)
	}
	return nil
}

func (r *pgRepository) DeleteMember(ctx context.Context, groupID, studentID uuid.UUID) error {
	_, err := r.q.Exec(ctx, "DELETE FROM group_members WHERE group_id = $1 AND student_id = $2", groupID, studentID)
	if err != nil {
		return fmt.Errorf("failed to delete group member: %w", err)
	}
	return nil
}

func (r *pgRepository) DeleteMembersByGroup(ctx context.Context, groupID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM group_members WHERE group_id = $1", groupID); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	return nil
}

func (r *pgRepository) ListMemberDetails(ctx context.Context, groupID uuid.UUID) ([]thesis.MemberDetail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT gm.student_id, i.first_name, i.last_name, s.student_code, gm.is_leader
		FROM group_members gm
		JOIN information i ON i.user_id = gm.student_id
		JOIN student_info s ON s.user_id = gm.student_id
		WHERE gm.group_id = $1
		ORDER BY gm.is_leader DESC, s.student_code`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member details: %w", err)
	}
	defer rows.Close()

	details := []thesis.MemberDetail{}
	for rows.Next() {
		var info common.Information
		var detail thesis.MemberDetail
		if err := rows.Scan(&info.UserID, &info.FirstName, &info.LastName, &detail.StudentCode, &detail.IsLeader); err != nil {
			return nil, fmt.Errorf("failed to scan member detail: %w", err)
		}
		detail.UserID = info.UserID
		detail.FullName = info.FullName()
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list member details: %w", err)
	}
	return details, nil
}

func (r *pgRepository) DeleteInvitesByGroup(ctx context.Context, groupID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM invites WHERE group_id = $1", groupID); err != nil {
		return fmt.Errorf("failed to delete invites: %w", err)
	}
	return nil
}

func (r *pgRepository) GetThesis(ctx context.Context, id uuid.UUID) (*thesis.Thesis, error) {
	t := &thesis.Thesis{}
	err := r.q.QueryRow(ctx, "SELECT id, title, status FROM theses WHERE id = $1", id).Scan(&t.ID, &t.Title, &t.Status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get thesis: %w", err)
	}
	return t, nil
}

func (r *pgRepository) UpdateThesisStatus(ctx context.Context, id uuid.UUID, status int) error {
	if _, err := r.q.Exec(ctx, "UPDATE theses SET status = $2 WHERE id = $1", id, status); err != nil {
		return fmt.Errorf("failed to update thesis status: %w", err)
	}
	return nil
}

// translate turns constraint violations that guard group invariants into
// Conflict failures and passes every other error through.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "group_members_student_id_key":
		return apperr.Conflict("student already belongs to a group")
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "groups_thesis_id_key":
		return apperr.Conflict("thesis is already registered by another group")
	case pgErr.Code == pgCheckViolation && pgErr.ConstraintName == "groups_quantity_check":
		return apperr.Conflict("group already has the maximum number of members")
	}
	return err
}
