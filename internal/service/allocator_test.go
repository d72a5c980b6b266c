package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

func TestAllocateFirstIdentifier(t *testing.T) {
	a := NewIdentifierAllocator()
	id := a.Allocate("06006899", "2025", models.AnnexTypeI, nil)
	require.Equal(t, "2025-06006899-I-1", id)
}

func TestAllocateContinuesSequenceAcrossTypes(t *testing.T) {
	a := NewIdentifierAllocator()
	existing := []models.Request{
		{ID: "2025-06006899-I-1", CenterCode: "06006899"},
		{ID: "2025-06006899-VIII-A-2", CenterCode: "06006899"},
		{ID: "2025-06006899-I-3", CenterCode: "06006899"},
	}
	id := a.Allocate("06006899", "2025", models.AnnexTypeII, existing)
	require.Equal(t, "2025-06006899-II-4", id)
}

func TestAllocateIgnoresOtherCentersAndYears(t *testing.T) {
	a := NewIdentifierAllocator()
	existing := []models.Request{
		{ID: "2025-10003905-I-9", CenterCode: "10003905"},
		{ID: "2024-06006899-I-7", CenterCode: "06006899"},
	}
	id := a.Allocate("06006899", "2025", models.AnnexTypeI, existing)
	require.Equal(t, "2025-06006899-I-1", id)
}

func TestRouteToTrack(t *testing.T) {
	require.Equal(t, models.TrackDelegated, RouteToTrack(models.AnnexTypeIVA))
	require.Equal(t, models.TrackDelegated, RouteToTrack(models.AnnexTypeVIIIA))
	require.Equal(t, models.TrackCentral, RouteToTrack(models.AnnexTypeI))
	require.Equal(t, models.TrackCentral, RouteToTrack(models.AnnexTypeXIII))

	require.Equal(t, models.StatePendingDelegated, ResolutionState(models.AnnexTypeVIIIA))
	require.Equal(t, models.StatePendingCentral, ResolutionState(models.AnnexTypeVIIIB))
}
