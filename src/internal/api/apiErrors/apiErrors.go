package apiErrors

import "fmt"

type ErrorCode string

const (
	InvalidAssignment ErrorCode = "INVALID_ASSIGNMENT"
	TypeMismatch      ErrorCode = "TYPE_MISMATCH"
	IntervieweeLocked ErrorCode = "INTERVIEWEE_LOCKED"
	InterviewerLocked ErrorCode = "INTERVIEWER_LOCKED"
	NotFound          ErrorCode = "NOT_FOUND"
	InternalError     ErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
