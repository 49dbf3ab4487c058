package service

import "github.com/mentorhub/interview-service/src/internal/model"

// derivedRoleGrants names the rule that every assigned interviewer
// holds the Interviewer role. The grant is idempotent and never
// revoked, so the role survives removal from every interview.
func derivedRoleGrants(interviewerIDs []string) []model.RoleGrant {
	grants := make([]model.RoleGrant, 0, len(interviewerIDs))
	for _, id := range interviewerIDs {
		grants = append(grants, model.RoleGrant{UserID: id, Role: model.RoleInterviewer})
	}
	return grants
}
