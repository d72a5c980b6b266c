package service

import "github.com/rayuela-fp/feoe-api/internal/models"

// RouteToTrack maps an annex type to the authority track that resolves it.
// Pure and deterministic: IV-A and VIII-A are delegated to the provincial
// authority, every other type is resolved centrally.
func RouteToTrack(annexType models.AnnexType) models.ResolutionTrack {
	switch annexType {
	case models.AnnexTypeIVA, models.AnnexTypeVIIIA:
		return models.TrackDelegated
	default:
		return models.TrackCentral
	}
}

// ResolutionState returns the pending-resolution state for the track handling
// the annex type.
func ResolutionState(annexType models.AnnexType) models.RequestState {
	if RouteToTrack(annexType) == models.TrackDelegated {
		return models.StatePendingDelegated
	}
	return models.StatePendingCentral
}
