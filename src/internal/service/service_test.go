package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mentorhub/interview-service/src/internal/api/apiErrors"
	"github.com/mentorhub/interview-service/src/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRepositories struct {
	mock.Mock
}

func (m *MockRepositories) CreateInterviewUnit(ctx context.Context, iv model.Interview, grp model.Group, grants []model.RoleGrant) error {
	args := m.Called(ctx, iv, grp, grants)
	return args.Error(0)
}

func (m *MockRepositories) UpdateInterviewUnit(ctx context.Context, mut model.InterviewMutation) error {
	args := m.Called(ctx, mut)
	return args.Error(0)
}

func (m *MockRepositories) GetInterview(ctx context.Context, id string) (model.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Interview), args.Error(1)
}

func (m *MockRepositories) ListInterviews(ctx context.Context, t model.InterviewType) ([]model.Interview, error) {
	args := m.Called(ctx, t)
	return args.Get(0).([]model.Interview), args.Error(1)
}

func (m *MockRepositories) ListInterviewsForInterviewer(ctx context.Context, userID string) ([]model.Interview, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Interview), args.Error(1)
}

func (m *MockRepositories) SubmitFeedback(ctx context.Context, interviewID, interviewerID, feedback string) (model.FeedbackAssignment, error) {
	args := m.Called(ctx, interviewID, interviewerID, feedback)
	return args.Get(0).(model.FeedbackAssignment), args.Error(1)
}

func (m *MockRepositories) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) GetGroupByInterview(ctx context.Context, interviewID string) (model.Group, error) {
	args := m.Called(ctx, interviewID)
	return args.Get(0).(model.Group), args.Error(1)
}

func (m *MockRepositories) GetAssignmentStats(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int), args.Error(1)
}

func createTestService() (*Service, *MockRepositories) {
	logger := zap.NewNop()
	mockRepo := new(MockRepositories)

	service := &Service{
		repo: mockRepo,
		log:  logger,
	}

	return service, mockRepo
}

func assignmentSet(fs []model.FeedbackAssignment) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.InterviewerID)
	}
	return out
}

func grantedUsers(grants []model.RoleGrant) []string {
	var out []string
	for _, g := range grants {
		if g.Role == model.RoleInterviewer {
			out = append(out, g.UserID)
		}
	}
	return out
}

func TestCreateInterview_Success(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CreateInterviewUnit", mock.Anything,
		mock.MatchedBy(func(iv model.Interview) bool {
			return iv.InterviewID != "" &&
				iv.Type == model.MenteeInterview &&
				iv.IntervieweeID == "u1" &&
				assert.ObjectsAreEqual([]string{"u2", "u3"}, assignmentSet(iv.Feedbacks))
		}),
		mock.MatchedBy(func(grp model.Group) bool {
			return grp.GroupID != "" &&
				assert.ObjectsAreEqual([]string{"u1", "u2", "u3"}, grp.MemberIDs)
		}),
		mock.MatchedBy(func(grants []model.RoleGrant) bool {
			return assert.ObjectsAreEqual([]string{"u2", "u3"}, grantedUsers(grants))
		}),
	).Return(nil)

	id, err := service.CreateInterview(context.Background(), model.MenteeInterview, "u1", []string{"u2", "u3"})

	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	mockRepo.AssertExpectations(t)
}

func TestCreateInterview_IntervieweeIsInterviewer(t *testing.T) {
	service, mockRepo := createTestService()

	id, err := service.CreateInterview(context.Background(), model.MenteeInterview, "u1", []string{"u2", "u1"})

	assert.Error(t, err)
	assert.Empty(t, id)
	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.InvalidAssignment, apiErr.Code)
	mockRepo.AssertNotCalled(t, "CreateInterviewUnit")
}

func TestCreateInterview_DedupesInterviewers(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CreateInterviewUnit", mock.Anything,
		mock.MatchedBy(func(iv model.Interview) bool {
			return assert.ObjectsAreEqual([]string{"u2"}, assignmentSet(iv.Feedbacks))
		}),
		mock.MatchedBy(func(grp model.Group) bool {
			return assert.ObjectsAreEqual([]string{"u1", "u2"}, grp.MemberIDs)
		}),
		mock.AnythingOfType("[]model.RoleGrant"),
	).Return(nil)

	_, err := service.CreateInterview(context.Background(), model.MentorInterview, "u1", []string{"u2", "u2"})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func storedInterview(feedbacks ...model.FeedbackAssignment) model.Interview {
	return model.Interview{
		InterviewID:   "iv1",
		Type:          model.MenteeInterview,
		IntervieweeID: "u1",
		Feedbacks:     feedbacks,
	}
}

func lockedAssignment(interviewerID, name string) model.FeedbackAssignment {
	now := time.Now().UTC()
	return model.FeedbackAssignment{
		InterviewID:         "iv1",
		InterviewerID:       interviewerID,
		InterviewerName:     name,
		FeedbackSubmittedAt: &now,
	}
}

func unlockedAssignment(interviewerID, name string) model.FeedbackAssignment {
	return model.FeedbackAssignment{
		InterviewID:     "iv1",
		InterviewerID:   interviewerID,
		InterviewerName: name,
	}
}

func TestUpdateInterview_RemovesUnlockedInterviewer(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(unlockedAssignment("u2", "Bob"), unlockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)
	mockRepo.On("UpdateInterviewUnit", mock.Anything, mock.MatchedBy(func(mut model.InterviewMutation) bool {
		return mut.InterviewID == "iv1" &&
			mut.IntervieweeID == "u1" &&
			assert.ObjectsAreEqual([]string{"u2"}, mut.InterviewerIDs) &&
			assert.ObjectsAreEqual([]string{"u2"}, grantedUsers(mut.RoleGrants))
	})).Return(nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUpdateInterview_NotFound(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetInterview", mock.Anything, "missing").Return(model.Interview{}, model.ErrNotFound)

	err := service.UpdateInterview(context.Background(), "missing", model.MenteeInterview, "u1", []string{"u2"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
	mockRepo.AssertNotCalled(t, "UpdateInterviewUnit")
}

func TestUpdateInterview_InvalidAssignmentCheckedFirst(t *testing.T) {
	service, mockRepo := createTestService()

	err := service.UpdateInterview(context.Background(), "missing", model.MenteeInterview, "u1", []string{"u1"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.InvalidAssignment, apiErr.Code)
	mockRepo.AssertNotCalled(t, "GetInterview")
	mockRepo.AssertNotCalled(t, "UpdateInterviewUnit")
}

func TestUpdateInterview_TypeMismatch(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(unlockedAssignment("u2", "Bob"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MentorInterview, "u1", []string{"u2"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.TypeMismatch, apiErr.Code)
	mockRepo.AssertNotCalled(t, "UpdateInterviewUnit")
}

func TestUpdateInterview_IntervieweeLocked(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(lockedAssignment("u2", "Bob"), unlockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u9", []string{"u2", "u3"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.IntervieweeLocked, apiErr.Code)
	mockRepo.AssertNotCalled(t, "UpdateInterviewUnit")
}

func TestUpdateInterview_SameIntervieweeWithLockedFeedback(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(lockedAssignment("u2", "Bob"), unlockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)
	mockRepo.On("UpdateInterviewUnit", mock.Anything, mock.AnythingOfType("model.InterviewMutation")).Return(nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2", "u3"})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUpdateInterview_InterviewerLocked(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(unlockedAssignment("u2", "Bob"), lockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.InterviewerLocked, apiErr.Code)
	assert.Contains(t, apiErr.Message, "Carol")
	mockRepo.AssertNotCalled(t, "UpdateInterviewUnit")
}

func TestUpdateInterview_InterviewerLocked_FirstOffenderByID(t *testing.T) {
	service, mockRepo := createTestService()

	// Assignments arrive ordered by interviewer id; with both locked and
	// both removed, the reported name must be the lower id's.
	iv := storedInterview(lockedAssignment("u2", "Bob"), lockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u4"})

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.InterviewerLocked, apiErr.Code)
	assert.Contains(t, apiErr.Message, "Bob")
	assert.NotContains(t, apiErr.Message, "Carol")
}

func TestUpdateInterview_KeepingLockedInterviewerSucceeds(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(lockedAssignment("u2", "Bob"), unlockedAssignment("u3", "Carol"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)
	mockRepo.On("UpdateInterviewUnit", mock.Anything, mock.MatchedBy(func(mut model.InterviewMutation) bool {
		return assert.ObjectsAreEqual([]string{"u2"}, mut.InterviewerIDs)
	})).Return(nil)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUpdateInterview_Idempotent(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(unlockedAssignment("u2", "Bob"))
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)

	var muts []model.InterviewMutation
	mockRepo.On("UpdateInterviewUnit", mock.Anything, mock.AnythingOfType("model.InterviewMutation")).
		Run(func(args mock.Arguments) {
			muts = append(muts, args.Get(1).(model.InterviewMutation))
		}).Return(nil)

	assert.NoError(t, service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"}))
	assert.NoError(t, service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"}))

	assert.Len(t, muts, 2)
	assert.Equal(t, muts[0], muts[1])
}

func TestUpdateInterview_StorageErrorPassedThrough(t *testing.T) {
	service, mockRepo := createTestService()

	iv := storedInterview(unlockedAssignment("u2", "Bob"))
	storageErr := errors.New("pq: connection refused")
	mockRepo.On("GetInterview", mock.Anything, "iv1").Return(iv, nil)
	mockRepo.On("UpdateInterviewUnit", mock.Anything, mock.AnythingOfType("model.InterviewMutation")).Return(storageErr)

	err := service.UpdateInterview(context.Background(), "iv1", model.MenteeInterview, "u1", []string{"u2"})

	assert.ErrorIs(t, err, storageErr)
}

func TestSubmitFeedback_Success(t *testing.T) {
	service, mockRepo := createTestService()

	now := time.Now().UTC()
	text := "strong candidate"
	submitted := model.FeedbackAssignment{
		InterviewID:         "iv1",
		InterviewerID:       "u2",
		Feedback:            &text,
		FeedbackSubmittedAt: &now,
	}
	mockRepo.On("SubmitFeedback", mock.Anything, "iv1", "u2", "strong candidate").Return(submitted, nil)

	f, err := service.SubmitFeedback(context.Background(), "iv1", "u2", "strong candidate")

	assert.NoError(t, err)
	assert.True(t, f.Locked())
	mockRepo.AssertExpectations(t)
}

func TestSubmitFeedback_AssignmentNotFound(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("SubmitFeedback", mock.Anything, "iv1", "u9", "text").
		Return(model.FeedbackAssignment{}, model.ErrNotFound)

	_, err := service.SubmitFeedback(context.Background(), "iv1", "u9", "text")

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestGetInterview_NotFound(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetInterview", mock.Anything, "missing").Return(model.Interview{}, model.ErrNotFound)

	_, err := service.GetInterview(context.Background(), "missing")

	var apiErr apiErrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestCreateUser_GeneratesID(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.UserID != "" && u.Name == "Alice" && u.Roles != nil
	})).Return(model.User{UserID: "generated", Name: "Alice", Roles: []string{}}, nil)

	u, err := service.CreateUser(context.Background(), model.User{Name: "Alice"})

	assert.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	mockRepo.AssertExpectations(t)
}

func TestGetStats(t *testing.T) {
	service, mockRepo := createTestService()

	mockRepo.On("GetAssignmentStats", mock.Anything).Return(map[string]int{"u2": 3, "u3": 1}, nil)

	stats, err := service.GetStats(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, stats.InterviewerAssignments["u2"])
	mockRepo.AssertExpectations(t)
}

func TestDerivedRoleGrants(t *testing.T) {
	grants := derivedRoleGrants([]string{"u2", "u3"})

	assert.Len(t, grants, 2)
	for _, g := range grants {
		assert.Equal(t, model.RoleInterviewer, g.Role)
	}
	assert.Equal(t, []string{"u2", "u3"}, grantedUsers(grants))
}
