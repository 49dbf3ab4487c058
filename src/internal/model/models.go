package model

import "time"

type InterviewType string

const (
	MenteeInterview InterviewType = "MenteeInterview"
	MentorInterview InterviewType = "MentorInterview"
)

func ParseInterviewType(s string) (InterviewType, bool) {
	switch InterviewType(s) {
	case MenteeInterview, MentorInterview:
		return InterviewType(s), true
	}
	return "", false
}

const RoleInterviewer = "Interviewer"

type User struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
}

type Interview struct {
	InterviewID   string               `json:"interview_id"`
	Type          InterviewType        `json:"type"`
	IntervieweeID string               `json:"interviewee_id"`
	Feedbacks     []FeedbackAssignment `json:"feedbacks"`
	Group         *Group               `json:"group,omitempty"`
	CreatedAt     time.Time            `json:"created_at,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at,omitempty"`
}

// FeedbackAssignment binds one interviewer to one interview. Once
// FeedbackSubmittedAt is set the assignment is locked: it is never
// removed and the interview's interviewee can no longer change.
type FeedbackAssignment struct {
	InterviewID         string     `json:"interview_id"`
	InterviewerID       string     `json:"interviewer_id"`
	InterviewerName     string     `json:"interviewer_name,omitempty"`
	Feedback            *string    `json:"feedback,omitempty"`
	FeedbackSubmittedAt *time.Time `json:"feedback_submitted_at,omitempty"`
}

func (f FeedbackAssignment) Locked() bool {
	return f.FeedbackSubmittedAt != nil
}

type Group struct {
	GroupID     string   `json:"group_id"`
	Title       *string  `json:"title,omitempty"`
	InterviewID string   `json:"interview_id,omitempty"`
	MemberIDs   []string `json:"member_ids"`
}

type RoleGrant struct {
	UserID string
	Role   string
}

// InterviewMutation is the desired end state an update applies as one
// unit of work against the current stored state.
type InterviewMutation struct {
	InterviewID    string
	IntervieweeID  string
	InterviewerIDs []string
	RoleGrants     []RoleGrant
}

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound           = AppError("NOT_FOUND")
	ErrCannotRemoveLocked = AppError("CANNOT_REMOVE_LOCKED")
)
