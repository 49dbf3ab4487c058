package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mentorhub/interview-service/src/internal/model"

	"go.uber.org/zap"
)

// CreateInterviewUnit inserts the interview, its feedback assignments,
// the derived role grants and the backing group in one transaction.
func (r *Repositories) CreateInterviewUnit(ctx context.Context, iv model.Interview, grp model.Group, grants []model.RoleGrant) error {
	r.Log.Debug("CreateInterviewUnit: start", zap.String("interview_id", iv.InterviewID), zap.String("interviewee", iv.IntervieweeID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateInterviewUnit: begin tx failed", zap.Error(err))
		return err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateInterviewUnit: rollback failed", zap.Error(err))
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO interviews(interview_id, type, interviewee_id, created_at, updated_at) VALUES($1,$2,$3, now(), now())`,
		iv.InterviewID, iv.Type, iv.IntervieweeID)
	if err != nil {
		r.Log.Error("CreateInterviewUnit: insert interview failed", zap.String("interview_id", iv.InterviewID), zap.Error(err))
		return err
	}

	for _, f := range iv.Feedbacks {
		if err := r.addAssignmentTx(ctx, tx, iv.InterviewID, f.InterviewerID); err != nil {
			return err
		}
	}

	for _, g := range grants {
		if err := r.grantRoleTx(ctx, tx, g.UserID, g.Role); err != nil {
			return err
		}
	}

	if err := r.createGroupTx(ctx, tx, grp); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateInterviewUnit: commit failed", zap.String("interview_id", iv.InterviewID), zap.Error(err))
		return err
	}

	r.Log.Info("CreateInterviewUnit: success", zap.String("interview_id", iv.InterviewID), zap.Int("interviewers", len(iv.Feedbacks)))
	return nil
}

// UpdateInterviewUnit applies the desired interview state in one
// transaction. The interview row is read FOR UPDATE first, so two
// updates of the same interview serialize and the assignment and
// membership deltas are always computed against committed state.
func (r *Repositories) UpdateInterviewUnit(ctx context.Context, mut model.InterviewMutation) error {
	r.Log.Debug("UpdateInterviewUnit: start", zap.String("interview_id", mut.InterviewID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("UpdateInterviewUnit: begin tx failed", zap.Error(err))
		return err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("UpdateInterviewUnit: rollback failed", zap.Error(err))
		}
	}()

	iv, err := r.getInterviewForUpdate(ctx, tx, mut.InterviewID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE interviews SET interviewee_id=$2, updated_at=now() WHERE interview_id=$1`,
		mut.InterviewID, mut.IntervieweeID)
	if err != nil {
		r.Log.Error("UpdateInterviewUnit: update interview failed", zap.String("interview_id", mut.InterviewID), zap.Error(err))
		return err
	}

	desired := make(map[string]struct{}, len(mut.InterviewerIDs))
	for _, id := range mut.InterviewerIDs {
		desired[id] = struct{}{}
	}
	current := make(map[string]struct{}, len(iv.Feedbacks))
	for _, f := range iv.Feedbacks {
		current[f.InterviewerID] = struct{}{}
		if _, keep := desired[f.InterviewerID]; !keep {
			if err := r.removeAssignmentTx(ctx, tx, mut.InterviewID, f.InterviewerID); err != nil {
				return err
			}
		}
	}
	for _, id := range mut.InterviewerIDs {
		if _, ok := current[id]; !ok {
			if err := r.addAssignmentTx(ctx, tx, mut.InterviewID, id); err != nil {
				return err
			}
		}
	}

	for _, g := range mut.RoleGrants {
		if err := r.grantRoleTx(ctx, tx, g.UserID, g.Role); err != nil {
			return err
		}
	}

	grp, err := r.getGroupByInterviewTx(ctx, tx, mut.InterviewID)
	if err != nil {
		return err
	}
	members := append([]string{mut.IntervieweeID}, mut.InterviewerIDs...)
	if err := r.reconcileGroupMembersTx(ctx, tx, grp.GroupID, members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("UpdateInterviewUnit: commit failed", zap.String("interview_id", mut.InterviewID), zap.Error(err))
		return err
	}

	r.Log.Info("UpdateInterviewUnit: success", zap.String("interview_id", mut.InterviewID), zap.Int("interviewers", len(mut.InterviewerIDs)))
	return nil
}

func (r *Repositories) GetInterview(ctx context.Context, id string) (model.Interview, error) {
	r.Log.Debug("GetInterview: start", zap.String("interview_id", id))
	var iv model.Interview
	if err := r.DB.QueryRowContext(ctx,
		`SELECT interview_id, type, interviewee_id, created_at, updated_at FROM interviews WHERE interview_id=$1`, id).
		Scan(&iv.InterviewID, &iv.Type, &iv.IntervieweeID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetInterview: not found", zap.String("interview_id", id))
			return model.Interview{}, model.ErrNotFound
		}
		r.Log.Error("GetInterview: query failed", zap.String("interview_id", id), zap.Error(err))
		return model.Interview{}, err
	}

	feedbacks, err := r.listAssignments(ctx, r.DB, id)
	if err != nil {
		return model.Interview{}, err
	}
	iv.Feedbacks = feedbacks

	grp, err := r.GetGroupByInterview(ctx, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.Interview{}, err
	}
	if err == nil {
		iv.Group = &grp
	}

	r.Log.Debug("GetInterview: success", zap.String("interview_id", id), zap.Int("assignment_count", len(iv.Feedbacks)))
	return iv, nil
}

func (r *Repositories) getInterviewForUpdate(ctx context.Context, tx *sql.Tx, id string) (model.Interview, error) {
	r.Log.Debug("getInterviewForUpdate: start", zap.String("interview_id", id))
	var iv model.Interview
	if err := tx.QueryRowContext(ctx,
		`SELECT interview_id, type, interviewee_id, created_at, updated_at FROM interviews WHERE interview_id=$1 FOR UPDATE`, id).
		Scan(&iv.InterviewID, &iv.Type, &iv.IntervieweeID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("getInterviewForUpdate: not found", zap.String("interview_id", id))
			return model.Interview{}, model.ErrNotFound
		}
		r.Log.Error("getInterviewForUpdate: select for update failed", zap.String("interview_id", id), zap.Error(err))
		return model.Interview{}, err
	}

	feedbacks, err := r.listAssignments(ctx, tx, id)
	if err != nil {
		return model.Interview{}, err
	}
	iv.Feedbacks = feedbacks
	return iv, nil
}

func (r *Repositories) ListInterviews(ctx context.Context, t model.InterviewType) ([]model.Interview, error) {
	r.Log.Debug("ListInterviews: start", zap.String("type", string(t)))
	rows, err := r.DB.QueryContext(ctx,
		`SELECT interview_id, type, interviewee_id, created_at, updated_at FROM interviews WHERE type=$1 ORDER BY created_at DESC`, t)
	if err != nil {
		r.Log.Error("ListInterviews: query failed", zap.Error(err))
		return nil, err
	}
	out, err := r.collectInterviews(ctx, rows)
	if err != nil {
		return nil, err
	}
	r.Log.Debug("ListInterviews: success", zap.Int("count", len(out)))
	return out, nil
}

func (r *Repositories) ListInterviewsForInterviewer(ctx context.Context, userID string) ([]model.Interview, error) {
	r.Log.Debug("ListInterviewsForInterviewer: start", zap.String("user", userID))
	rows, err := r.DB.QueryContext(ctx, `
        SELECT i.interview_id, i.type, i.interviewee_id, i.created_at, i.updated_at
        FROM interviews i
        JOIN interview_feedbacks f ON i.interview_id = f.interview_id
        WHERE f.interviewer_id = $1
        ORDER BY i.created_at DESC
    `, userID)
	if err != nil {
		r.Log.Error("ListInterviewsForInterviewer: query failed", zap.Error(err))
		return nil, err
	}
	out, err := r.collectInterviews(ctx, rows)
	if err != nil {
		return nil, err
	}
	r.Log.Debug("ListInterviewsForInterviewer: success", zap.Int("count", len(out)))
	return out, nil
}

func (r *Repositories) collectInterviews(ctx context.Context, rows *sql.Rows) ([]model.Interview, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("collectInterviews: close rows failed", zap.Error(err))
		}
	}(rows)

	var out []model.Interview
	for rows.Next() {
		var iv model.Interview
		if err := rows.Scan(&iv.InterviewID, &iv.Type, &iv.IntervieweeID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
			r.Log.Error("collectInterviews: scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("collectInterviews: rows error", zap.Error(err))
		return nil, err
	}

	for i := range out {
		feedbacks, err := r.listAssignments(ctx, r.DB, out[i].InterviewID)
		if err != nil {
			return nil, err
		}
		out[i].Feedbacks = feedbacks
	}
	return out, nil
}
