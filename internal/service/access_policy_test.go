package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

func TestCanViewPerRole(t *testing.T) {
	var policy AccessPolicy
	central := &models.Request{CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StatePendingCentral}
	delegated := &models.Request{CenterCode: "06006899", AnnexType: models.AnnexTypeVIIIA, State: models.StatePendingDelegated}
	trashed := &models.Request{CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StateTrashed}

	owner := models.Actor{Role: models.RoleDirector, CenterCode: "06006899"}
	stranger := models.Actor{Role: models.RoleDirector, CenterCode: "10003905"}
	inspector := models.Actor{Role: models.RoleInspector, Province: models.ProvinceBadajoz}
	farInspector := models.Actor{Role: models.RoleInspector, Province: models.ProvinceCaceres}
	delegate := models.Actor{Role: models.RoleDelegate, Province: models.ProvinceBadajoz}
	dg := models.Actor{Role: models.RoleDirectorGeneral}
	super := models.Actor{Role: models.RoleSuperuser}

	require.True(t, policy.CanView(owner, central, models.ProvinceBadajoz))
	require.False(t, policy.CanView(stranger, central, models.ProvinceBadajoz))
	require.True(t, policy.CanView(inspector, central, models.ProvinceBadajoz))
	require.False(t, policy.CanView(farInspector, central, models.ProvinceBadajoz))
	require.False(t, policy.CanView(delegate, central, models.ProvinceBadajoz))
	require.True(t, policy.CanView(delegate, delegated, models.ProvinceBadajoz))
	require.True(t, policy.CanView(dg, central, models.ProvinceBadajoz))

	require.False(t, policy.CanView(owner, trashed, models.ProvinceBadajoz))
	require.False(t, policy.CanView(dg, trashed, models.ProvinceBadajoz))
	require.True(t, policy.CanView(super, trashed, models.ProvinceBadajoz))
}

func TestCanEditBlocksSettledStates(t *testing.T) {
	var policy AccessPolicy
	owner := models.Actor{Role: models.RoleDirector, CenterCode: "06006899"}

	for _, state := range []models.RequestState{models.StateDraft, models.StatePendingInspection, models.StatePendingCentral} {
		req := &models.Request{CenterCode: "06006899", State: state}
		require.True(t, policy.CanEdit(owner, req), "state %s", state)
	}
	for _, state := range []models.RequestState{models.StateApproved, models.StateRejected, models.StateTrashed, models.StatePendingAnnulment} {
		req := &models.Request{CenterCode: "06006899", State: state}
		require.False(t, policy.CanEdit(owner, req), "state %s", state)
	}
}

func TestCanResolveTracks(t *testing.T) {
	var policy AccessPolicy
	central := &models.Request{CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StatePendingCentral}
	delegated := &models.Request{CenterCode: "06006899", AnnexType: models.AnnexTypeIVA, State: models.StatePendingDelegated}

	dg := models.Actor{Role: models.RoleDirectorGeneral}
	delegate := models.Actor{Role: models.RoleDelegate, Province: models.ProvinceBadajoz}
	farDelegate := models.Actor{Role: models.RoleDelegate, Province: models.ProvinceCaceres}
	super := models.Actor{Role: models.RoleSuperuser}

	require.True(t, policy.CanResolve(dg, central, models.ProvinceBadajoz))
	require.False(t, policy.CanResolve(dg, delegated, models.ProvinceBadajoz))
	require.True(t, policy.CanResolve(delegate, delegated, models.ProvinceBadajoz))
	require.False(t, policy.CanResolve(farDelegate, delegated, models.ProvinceBadajoz))
	require.False(t, policy.CanResolve(delegate, central, models.ProvinceBadajoz))
	require.True(t, policy.CanResolve(super, central, models.ProvinceBadajoz))
	require.True(t, policy.CanResolve(super, delegated, models.ProvinceBadajoz))
}

func TestPendingCountRules(t *testing.T) {
	var policy AccessPolicy
	requests := []models.Request{
		{ID: "a", CenterCode: "06006899", AnnexType: models.AnnexTypeVIIIA, State: models.StatePendingInspection},
		{ID: "b", CenterCode: "06006899", AnnexType: models.AnnexTypeVIIIA, State: models.StatePendingDelegated},
		{ID: "c", CenterCode: "10003905", AnnexType: models.AnnexTypeI, State: models.StatePendingCentral},
		{ID: "d", CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StatePendingAnnulment},
		{ID: "e", CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StateRejected},
		{ID: "f", CenterCode: "06006899", AnnexType: models.AnnexTypeI, State: models.StateTrashed},
	}
	provinceOf := func(code string) string {
		if code == "10003905" {
			return models.ProvinceCaceres
		}
		return models.ProvinceBadajoz
	}

	inspector := models.Actor{Role: models.RoleInspector, Province: models.ProvinceBadajoz}
	require.Equal(t, 1, policy.PendingCount(inspector, requests, provinceOf))

	delegate := models.Actor{Role: models.RoleDelegate, Province: models.ProvinceBadajoz}
	require.Equal(t, 1, policy.PendingCount(delegate, requests, provinceOf))

	dg := models.Actor{Role: models.RoleDirectorGeneral}
	require.Equal(t, 1, policy.PendingCount(dg, requests, provinceOf))

	super := models.Actor{Role: models.RoleSuperuser}
	require.Equal(t, 1, policy.PendingCount(super, requests, provinceOf))

	director := models.Actor{Role: models.RoleDirector, CenterCode: "06006899"}
	require.Equal(t, 0, policy.PendingCount(director, requests, provinceOf))
}
