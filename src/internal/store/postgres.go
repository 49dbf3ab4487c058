package store

import (
	"context"
	"database/sql"

	"github.com/mentorhub/interview-service/src/internal/model"

	"go.uber.org/zap"
)

type Repository interface {
	CreateInterviewUnit(ctx context.Context, iv model.Interview, grp model.Group, grants []model.RoleGrant) error
	UpdateInterviewUnit(ctx context.Context, mut model.InterviewMutation) error
	GetInterview(ctx context.Context, id string) (model.Interview, error)
	ListInterviews(ctx context.Context, t model.InterviewType) ([]model.Interview, error)
	ListInterviewsForInterviewer(ctx context.Context, userID string) ([]model.Interview, error)
	SubmitFeedback(ctx context.Context, interviewID, interviewerID, feedback string) (model.FeedbackAssignment, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetGroupByInterview(ctx context.Context, interviewID string) (model.Group, error)
	GetAssignmentStats(ctx context.Context) (map[string]int, error)
}

type Repositories struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		DB:  db,
		Log: logger,
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}
