package service

import "github.com/rayuela-fp/feoe-api/internal/models"

// AccessPolicy concentrates every role/province/ownership rule of the
// workflow. All predicates are pure functions of the actor, the record and
// the province of the record's center; callers resolve the province from the
// center registry.
type AccessPolicy struct{}

// CanView reports whether the actor may see the record in listings and
// detail views. Trashed records are only visible to the superuser.
func (AccessPolicy) CanView(actor models.Actor, req *models.Request, centerProvince string) bool {
	if actor.Role == models.RoleSuperuser {
		return true
	}
	if req.State == models.StateTrashed {
		return false
	}
	switch actor.Role {
	case models.RoleDirector:
		return req.CenterCode == actor.CenterCode
	case models.RoleInspector:
		return centerProvince == actor.Province
	case models.RoleDelegate:
		return centerProvince == actor.Province && RouteToTrack(req.AnnexType) == models.TrackDelegated
	case models.RoleDirectorGeneral:
		return true
	}
	return false
}

// CanEdit reports whether the actor may amend the record's payload. Only the
// owning director may, and only while the request is not resolved, annulled
// or trashed.
func (AccessPolicy) CanEdit(actor models.Actor, req *models.Request) bool {
	if actor.Role != models.RoleDirector || req.CenterCode != actor.CenterCode {
		return false
	}
	switch req.State {
	case models.StateApproved, models.StateRejected, models.StateTrashed, models.StatePendingAnnulment:
		return false
	}
	return true
}

// CanSubmit reports whether the actor may send a draft onwards.
func (AccessPolicy) CanSubmit(actor models.Actor, req *models.Request) bool {
	return actor.Role == models.RoleDirector && req.CenterCode == actor.CenterCode
}

// CanInspect reports whether the actor may issue the inspection verdict.
func (AccessPolicy) CanInspect(actor models.Actor, req *models.Request, centerProvince string) bool {
	return actor.Role == models.RoleInspector && centerProvince == actor.Province
}

// CanResolve reports whether the actor may issue the final resolution for the
// record's track. The superuser bypasses track matching.
func (AccessPolicy) CanResolve(actor models.Actor, req *models.Request, centerProvince string) bool {
	if actor.Role == models.RoleSuperuser {
		return true
	}
	switch RouteToTrack(req.AnnexType) {
	case models.TrackCentral:
		return actor.Role == models.RoleDirectorGeneral
	case models.TrackDelegated:
		return actor.Role == models.RoleDelegate && centerProvince == actor.Province
	}
	return false
}

// CanRequestAnnulment reports whether the actor may open the two-phase
// withdrawal flow: any actor who can already see the record.
func (p AccessPolicy) CanRequestAnnulment(actor models.Actor, req *models.Request, centerProvince string) bool {
	return p.CanView(actor, req, centerProvince)
}

// CanAdminister gates the superuser-only removal and correction paths:
// confirmAnnulment, softDelete, restore, purge and forcedOverride.
func (AccessPolicy) CanAdminister(actor models.Actor) bool {
	return actor.Role == models.RoleSuperuser
}

// CountsAsPending reports whether the record awaits the actor's own action,
// feeding the notification counter. Rejected and trashed records never count.
func (AccessPolicy) CountsAsPending(actor models.Actor, req *models.Request, centerProvince string) bool {
	switch req.State {
	case models.StateRejected, models.StateTrashed:
		return false
	case models.StatePendingAnnulment:
		return actor.Role == models.RoleSuperuser
	}
	switch actor.Role {
	case models.RoleInspector:
		return req.State == models.StatePendingInspection && centerProvince == actor.Province
	case models.RoleDelegate:
		return req.State == models.StatePendingDelegated && centerProvince == actor.Province
	case models.RoleDirectorGeneral:
		return req.State == models.StatePendingCentral
	}
	return false
}

// PendingCount counts records awaiting the actor's action. provinceOf maps a
// center code to its province (empty when unknown).
func (p AccessPolicy) PendingCount(actor models.Actor, requests []models.Request, provinceOf func(string) string) int {
	count := 0
	for i := range requests {
		if p.CountsAsPending(actor, &requests[i], provinceOf(requests[i].CenterCode)) {
			count++
		}
	}
	return count
}
