package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mentorhub/interview-service/src/internal/model"

	"go.uber.org/zap"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// listAssignments returns the feedback assignments for one interview
// with interviewer names resolved, ordered by interviewer id so that
// callers iterate deterministically.
func (r *Repositories) listAssignments(ctx context.Context, q querier, interviewID string) ([]model.FeedbackAssignment, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT f.interview_id, f.interviewer_id, u.name, f.feedback, f.feedback_submitted_at
        FROM interview_feedbacks f
        JOIN users u ON u.user_id = f.interviewer_id
        WHERE f.interview_id = $1
        ORDER BY f.interviewer_id
    `, interviewID)
	if err != nil {
		r.Log.Error("listAssignments: query failed", zap.String("interview_id", interviewID), zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("listAssignments: close rows failed", zap.String("interview_id", interviewID), zap.Error(err))
		}
	}(rows)

	var out []model.FeedbackAssignment
	for rows.Next() {
		var f model.FeedbackAssignment
		var feedback sql.NullString
		var submittedAt sql.NullTime
		if err := rows.Scan(&f.InterviewID, &f.InterviewerID, &f.InterviewerName, &feedback, &submittedAt); err != nil {
			r.Log.Error("listAssignments: scan failed", zap.String("interview_id", interviewID), zap.Error(err))
			return nil, err
		}
		if feedback.Valid {
			s := feedback.String
			f.Feedback = &s
		}
		if submittedAt.Valid {
			t := submittedAt.Time
			f.FeedbackSubmittedAt = &t
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("listAssignments: rows error", zap.String("interview_id", interviewID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *Repositories) addAssignmentTx(ctx context.Context, tx *sql.Tx, interviewID, interviewerID string) error {
	r.Log.Debug("addAssignmentTx: start", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
	_, err := tx.ExecContext(ctx,
		`INSERT INTO interview_feedbacks(interview_id, interviewer_id) VALUES($1,$2)`,
		interviewID, interviewerID)
	if err != nil {
		r.Log.Error("addAssignmentTx: insert failed", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID), zap.Error(err))
	}
	return err
}

// removeAssignmentTx deletes an unlocked assignment. The engine
// validates lock state before mutating, so hitting a locked row here
// means the invariant was violated; the transaction is aborted with
// ErrCannotRemoveLocked instead of deleting submitted feedback.
func (r *Repositories) removeAssignmentTx(ctx context.Context, tx *sql.Tx, interviewID, interviewerID string) error {
	r.Log.Debug("removeAssignmentTx: start", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
	res, err := tx.ExecContext(ctx,
		`DELETE FROM interview_feedbacks WHERE interview_id=$1 AND interviewer_id=$2 AND feedback_submitted_at IS NULL`,
		interviewID, interviewerID)
	if err != nil {
		r.Log.Error("removeAssignmentTx: delete failed", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID), zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		r.Log.Error("removeAssignmentTx: assignment locked or missing", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
		return model.ErrCannotRemoveLocked
	}
	return nil
}

func (r *Repositories) SubmitFeedback(ctx context.Context, interviewID, interviewerID, feedback string) (model.FeedbackAssignment, error) {
	r.Log.Debug("SubmitFeedback: start", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
	var f model.FeedbackAssignment
	var text sql.NullString
	var submittedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
        UPDATE interview_feedbacks SET feedback=$3, feedback_submitted_at=now()
        WHERE interview_id=$1 AND interviewer_id=$2
        RETURNING interview_id, interviewer_id, feedback, feedback_submitted_at
    `, interviewID, interviewerID, feedback).
		Scan(&f.InterviewID, &f.InterviewerID, &text, &submittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("SubmitFeedback: assignment not found", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
			return model.FeedbackAssignment{}, model.ErrNotFound
		}
		r.Log.Error("SubmitFeedback: update failed", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID), zap.Error(err))
		return model.FeedbackAssignment{}, err
	}
	if text.Valid {
		s := text.String
		f.Feedback = &s
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		f.FeedbackSubmittedAt = &t
	}
	r.Log.Info("SubmitFeedback: success", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
	return f, nil
}

func (r *Repositories) queryCountMap(ctx context.Context, query string, scanKey func(*sql.Rows) (string, int, error), logPrefix string) (map[string]int, error) {
	r.Log.Debug(logPrefix + ": start")
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		r.Log.Error(logPrefix+": query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Info(logPrefix+": close rows failed", zap.Error(err))
		}
	}()

	result := make(map[string]int)
	for rows.Next() {
		key, count, err := scanKey(rows)
		if err != nil {
			r.Log.Error(logPrefix+": scan failed", zap.Error(err))
			return nil, err
		}
		result[key] = count
	}

	r.Log.Debug(logPrefix+": success", zap.Int("items", len(result)))
	return result, nil
}

func (r *Repositories) GetAssignmentStats(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT interviewer_id, COUNT(*)
		FROM interview_feedbacks
		GROUP BY interviewer_id
	`
	return r.queryCountMap(ctx, query, func(rows *sql.Rows) (string, int, error) {
		var interviewerID string
		var count int
		if err := rows.Scan(&interviewerID, &count); err != nil {
			return "", 0, err
		}
		return interviewerID, count, nil
	}, "GetAssignmentStats")
}
