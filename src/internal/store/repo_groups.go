package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mentorhub/interview-service/src/internal/model"

	"go.uber.org/zap"
)

func (r *Repositories) createGroupTx(ctx context.Context, tx *sql.Tx, grp model.Group) error {
	r.Log.Debug("createGroupTx: start", zap.String("group_id", grp.GroupID), zap.String("interview_id", grp.InterviewID))
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interview_groups(group_id, title, interview_id) VALUES($1,$2,$3)`,
		grp.GroupID, grp.Title, grp.InterviewID); err != nil {
		r.Log.Error("createGroupTx: insert group failed", zap.String("group_id", grp.GroupID), zap.Error(err))
		return err
	}
	for _, m := range grp.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members(group_id, user_id) VALUES($1,$2)`, grp.GroupID, m); err != nil {
			r.Log.Error("createGroupTx: insert member failed", zap.String("group_id", grp.GroupID), zap.String("user", m), zap.Error(err))
			return err
		}
	}
	return nil
}

func (r *Repositories) GetGroupByInterview(ctx context.Context, interviewID string) (model.Group, error) {
	r.Log.Debug("GetGroupByInterview: start", zap.String("interview_id", interviewID))
	grp, err := r.getGroup(ctx, r.DB, interviewID, false)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			r.Log.Error("GetGroupByInterview: failed", zap.String("interview_id", interviewID), zap.Error(err))
		}
		return model.Group{}, err
	}
	r.Log.Debug("GetGroupByInterview: success", zap.String("group_id", grp.GroupID), zap.Int("members", len(grp.MemberIDs)))
	return grp, nil
}

func (r *Repositories) getGroupByInterviewTx(ctx context.Context, tx *sql.Tx, interviewID string) (model.Group, error) {
	return r.getGroup(ctx, tx, interviewID, true)
}

type rowQuerier interface {
	querier
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repositories) getGroup(ctx context.Context, q rowQuerier, interviewID string, forUpdate bool) (model.Group, error) {
	query := `SELECT group_id, title, interview_id FROM interview_groups WHERE interview_id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var grp model.Group
	if err := q.QueryRowContext(ctx, query, interviewID).Scan(&grp.GroupID, &grp.Title, &grp.InterviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Group{}, model.ErrNotFound
		}
		return model.Group{}, err
	}

	rows, err := q.QueryContext(ctx, `SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY user_id`, grp.GroupID)
	if err != nil {
		return model.Group{}, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("getGroup: close rows failed", zap.String("group_id", grp.GroupID), zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.Group{}, err
		}
		grp.MemberIDs = append(grp.MemberIDs, id)
	}
	if err := rows.Err(); err != nil {
		return model.Group{}, err
	}
	return grp, nil
}

// reconcileGroupMembersTx brings the group's member rows to the desired
// set by applying the minimal add/remove delta. No-op when the sets
// already match.
func (r *Repositories) reconcileGroupMembersTx(ctx context.Context, tx *sql.Tx, groupID string, desired []string) error {
	rows, err := tx.QueryContext(ctx, `SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY user_id`, groupID)
	if err != nil {
		r.Log.Error("reconcileGroupMembersTx: query members failed", zap.String("group_id", groupID), zap.Error(err))
		return err
	}
	var current []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			r.Log.Error("reconcileGroupMembersTx: scan failed", zap.String("group_id", groupID), zap.Error(err))
			return err
		}
		current = append(current, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		r.Log.Error("reconcileGroupMembersTx: close rows failed", zap.String("group_id", groupID), zap.Error(err))
	}

	toAdd, toRemove := memberDelta(current, desired)
	for _, id := range toRemove {
		if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, id); err != nil {
			r.Log.Error("reconcileGroupMembersTx: delete member failed", zap.String("group_id", groupID), zap.String("user", id), zap.Error(err))
			return err
		}
	}
	for _, id := range toAdd {
		if _, err := tx.ExecContext(ctx, `INSERT INTO group_members(group_id, user_id) VALUES($1,$2)`, groupID, id); err != nil {
			r.Log.Error("reconcileGroupMembersTx: insert member failed", zap.String("group_id", groupID), zap.String("user", id), zap.Error(err))
			return err
		}
	}

	r.Log.Debug("reconcileGroupMembersTx: done", zap.String("group_id", groupID), zap.Int("added", len(toAdd)), zap.Int("removed", len(toRemove)))
	return nil
}

// memberDelta computes desired−current and current−desired. Duplicates
// in either input count once.
func memberDelta(current, desired []string) (toAdd, toRemove []string) {
	cur := make(map[string]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		if _, ok := want[id]; ok {
			continue
		}
		want[id] = struct{}{}
		if _, ok := cur[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}
