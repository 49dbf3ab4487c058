package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mentorhub/interview-service/src/internal/api/apiErrors"
	"github.com/mentorhub/interview-service/src/internal/model"
	"github.com/mentorhub/interview-service/src/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repo store.Repository
	log  *zap.Logger
}

type Stats struct {
	InterviewerAssignments map[string]int `json:"interviewer_assignments"`
}

func NewService(repos store.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo: repos,
		log:  logger,
	}
}

// CreateInterview creates the interview together with its feedback
// assignments, the derived role grants and the backing group as one
// unit of work. Nothing is visible to other operations until it commits.
func (s *Service) CreateInterview(ctx context.Context, t model.InterviewType, intervieweeID string, interviewerIDs []string) (string, error) {
	interviewerIDs = dedupe(interviewerIDs)
	if err := validateAssignment(intervieweeID, interviewerIDs); err != nil {
		return "", err
	}

	iv := model.Interview{
		InterviewID:   uuid.NewString(),
		Type:          t,
		IntervieweeID: intervieweeID,
	}
	for _, id := range interviewerIDs {
		iv.Feedbacks = append(iv.Feedbacks, model.FeedbackAssignment{
			InterviewID:   iv.InterviewID,
			InterviewerID: id,
		})
	}
	grp := model.Group{
		GroupID:     uuid.NewString(),
		InterviewID: iv.InterviewID,
		MemberIDs:   append([]string{intervieweeID}, interviewerIDs...),
	}

	if err := s.repo.CreateInterviewUnit(ctx, iv, grp, derivedRoleGrants(interviewerIDs)); err != nil {
		return "", err
	}
	s.log.Info("interview created", zap.String("interview_id", iv.InterviewID), zap.Int("interviewers", len(interviewerIDs)))
	return iv.InterviewID, nil
}

// UpdateInterview validates against the stored interview and then
// commits the new interviewee, assignment set, role grants and group
// membership as one unit of work. All validation failures are detected
// before any mutation begins.
func (s *Service) UpdateInterview(ctx context.Context, id string, t model.InterviewType, intervieweeID string, interviewerIDs []string) error {
	interviewerIDs = dedupe(interviewerIDs)
	if err := validateAssignment(intervieweeID, interviewerIDs); err != nil {
		return err
	}

	iv, err := s.repo.GetInterview(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apiErrors.APIError{Code: apiErrors.NotFound, Message: "interview not found"}
		}
		return err
	}
	if t != iv.Type {
		return apiErrors.APIError{Code: apiErrors.TypeMismatch, Message: "interview type cannot be changed"}
	}
	if intervieweeID != iv.IntervieweeID && anyLocked(iv.Feedbacks) {
		return apiErrors.APIError{Code: apiErrors.IntervieweeLocked, Message: "feedback already submitted; interviewee cannot be changed"}
	}
	// Feedbacks arrive ordered by interviewer id, so the first offender
	// reported here is deterministic.
	for _, f := range iv.Feedbacks {
		if f.Locked() && !contains(interviewerIDs, f.InterviewerID) {
			return apiErrors.APIError{
				Code:    apiErrors.InterviewerLocked,
				Message: fmt.Sprintf("interviewer %s has already submitted feedback and cannot be removed", displayName(f)),
			}
		}
	}

	mut := model.InterviewMutation{
		InterviewID:    id,
		IntervieweeID:  intervieweeID,
		InterviewerIDs: interviewerIDs,
		RoleGrants:     derivedRoleGrants(interviewerIDs),
	}
	if err := s.repo.UpdateInterviewUnit(ctx, mut); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apiErrors.APIError{Code: apiErrors.NotFound, Message: "interview not found"}
		}
		return err
	}
	s.log.Info("interview updated", zap.String("interview_id", id), zap.Int("interviewers", len(interviewerIDs)))
	return nil
}

func (s *Service) GetInterview(ctx context.Context, id string) (model.Interview, error) {
	iv, err := s.repo.GetInterview(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Interview{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "interview not found"}
		}
		return model.Interview{}, err
	}
	return iv, nil
}

func (s *Service) ListInterviews(ctx context.Context, t model.InterviewType) ([]model.Interview, error) {
	return s.repo.ListInterviews(ctx, t)
}

func (s *Service) ListInterviewsForInterviewer(ctx context.Context, userID string) ([]model.Interview, error) {
	return s.repo.ListInterviewsForInterviewer(ctx, userID)
}

// SubmitFeedback records the interviewer's feedback and locks the
// assignment. Resubmission replaces the text and refreshes the
// timestamp; the assignment stays locked.
func (s *Service) SubmitFeedback(ctx context.Context, interviewID, interviewerID, feedback string) (model.FeedbackAssignment, error) {
	f, err := s.repo.SubmitFeedback(ctx, interviewID, interviewerID, feedback)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.FeedbackAssignment{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "feedback assignment not found"}
		}
		return model.FeedbackAssignment{}, err
	}
	s.log.Info("feedback submitted", zap.String("interview_id", interviewID), zap.String("interviewer", interviewerID))
	return f, nil
}

func (s *Service) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return s.repo.CreateUser(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, userID string) (model.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "user not found"}
		}
		return model.User{}, err
	}
	return u, nil
}

func (s *Service) GetGroupByInterview(ctx context.Context, interviewID string) (model.Group, error) {
	g, err := s.repo.GetGroupByInterview(ctx, interviewID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Group{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "group not found"}
		}
		return model.Group{}, err
	}
	return g, nil
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.GetAssignmentStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{InterviewerAssignments: counts}, nil
}

func validateAssignment(intervieweeID string, interviewerIDs []string) error {
	for _, id := range interviewerIDs {
		if id == intervieweeID {
			return apiErrors.APIError{Code: apiErrors.InvalidAssignment, Message: "interviewee cannot also be an interviewer"}
		}
	}
	return nil
}

func anyLocked(fs []model.FeedbackAssignment) bool {
	for _, f := range fs {
		if f.Locked() {
			return true
		}
	}
	return false
}

func displayName(f model.FeedbackAssignment) string {
	if f.InterviewerName != "" {
		return f.InterviewerName
	}
	return f.InterviewerID
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
