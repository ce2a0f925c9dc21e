package service

import "github.com/Shivanand-hulikatti/interview-registration/internal/model"

// Authorization predicates, one per operation. Each is evaluated once inside
// the operation's transaction against freshly read rows.

func canCancel(a model.Actor, reg *model.Registration) bool {
	return a.IsAdmin() || reg.CandidateID == a.UserID
}

func canChangeStatus(a model.Actor) bool {
	return a.IsStaff()
}

// canScore allows admins and interviewers assigned to the registration's slot.
// A registration without a slot can only be scored by an admin.
func canScore(a model.Actor, slot *model.InterviewSlot) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == model.RoleInterviewer && slot != nil && slot.HasInterviewer(a.UserID)
}

func canAnnounce(a model.Actor) bool {
	return a.IsAdmin()
}

func canView(a model.Actor, reg *model.Registration, slot *model.InterviewSlot) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleInterviewer:
		return reg.CandidateID == a.UserID || (slot != nil && slot.HasInterviewer(a.UserID))
	default:
		return reg.CandidateID == a.UserID
	}
}
