package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/models"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
)

type stubRequestStore struct {
	requests map[string]*models.Request
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{requests: make(map[string]*models.Request)}
}

func (s *stubRequestStore) Create(ctx context.Context, req *models.Request) error {
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *stubRequestStore) GetByID(ctx context.Context, id string) (*models.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (s *stubRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	out := make([]models.Request, 0, len(s.requests))
	for _, req := range s.requests {
		if filter.CenterCode != "" && req.CenterCode != filter.CenterCode {
			continue
		}
		if filter.Year != "" && len(req.ID) >= 4 && req.ID[:4] != filter.Year {
			continue
		}
		if len(filter.States) > 0 {
			matched := false
			for _, state := range filter.States {
				if req.State == state {
					matched = true
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, *req)
	}
	return out, nil
}

func (s *stubRequestStore) Update(ctx context.Context, req *models.Request, expectedState models.RequestState) error {
	current, ok := s.requests[req.ID]
	if !ok || current.State != expectedState {
		return sql.ErrNoRows
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *stubRequestStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.requests, id)
	return nil
}

type stubCenterDirectory struct {
	centers map[string]*models.Center
}

func (s *stubCenterDirectory) GetByCode(ctx context.Context, code string) (*models.Center, error) {
	center, ok := s.centers[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return center, nil
}

type stubStudentDirectory struct {
	students map[string]*models.Student
}

func (s *stubStudentDirectory) GetByDNI(ctx context.Context, dni string) (*models.Student, error) {
	student, ok := s.students[dni]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func newTestService(t *testing.T) (*RequestService, *stubRequestStore) {
	t.Helper()
	store := newStubRequestStore()
	centers := &stubCenterDirectory{centers: map[string]*models.Center{
		"06006899": {Code: "06006899", Name: "IES Llerena", Locality: "Llerena", Province: models.ProvinceBadajoz},
		"10003905": {Code: "10003905", Name: "IES Plasencia", Locality: "Plasencia", Province: models.ProvinceCaceres},
	}}
	students := &stubStudentDirectory{students: map[string]*models.Student{
		"11111111H": {DNI: "11111111H", FirstName: "Lucía", LastName: "Moreno", CenterCode: "06006899"},
		"22222222J": {DNI: "22222222J", FirstName: "Pablo", LastName: "Santos", CenterCode: "06006899"},
	}}
	fixedNow := func() time.Time {
		return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	}
	svc := NewRequestService(store, centers, students, NewValidator(time.August), nil, WithClock(fixedNow))
	return svc, store
}

func directorActor() models.Actor {
	return models.Actor{Name: "Ana Díaz", Role: models.RoleDirector, Province: models.ProvinceBadajoz, CenterCode: "06006899"}
}

func typeIPayload() dto.RequestPayload {
	return dto.RequestPayload{
		Students: []string{"11111111H"},
		Motive:   MotivesTypeI[0],
		Documents: []dto.DocumentInput{
			{Name: "memoria.pdf", URL: "/docs/memoria.pdf"},
		},
	}
}

func typeIIPayload() dto.RequestPayload {
	return dto.RequestPayload{
		Students:        []string{"11111111H"},
		StartDate:       "2025-04-01",
		EndDate:         "2025-06-30",
		AgreementNumber: "20250101-Dehesa Sur",
		Documents: []dto.DocumentInput{
			{Name: "plan-formativo.pdf", Tag: models.DocumentTagPlan, URL: "/docs/plan.pdf"},
		},
	}
}

func TestCreateAllocatesFirstIdentifier(t *testing.T) {
	svc, _ := newTestService(t)

	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		Draft:          true,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)
	require.Equal(t, "2025-06006899-I-1", req.ID)
	require.Equal(t, models.StateDraft, req.State)
	require.Len(t, req.History, 1)
	require.Equal(t, models.ActionCreate, req.History[0].Action)
	require.Equal(t, models.StateDraft, req.History[0].ResultingState)
}

func TestCreateSequenceSkipsGaps(t *testing.T) {
	svc, store := newTestService(t)
	store.requests["2025-06006899-I-7"] = &models.Request{
		ID:         "2025-06006899-I-7",
		AnnexType:  models.AnnexTypeI,
		CenterCode: "06006899",
		State:      models.StateTrashed,
	}

	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		Draft:          true,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)
	require.Equal(t, "2025-06006899-I-8", req.ID)
}

func TestCreateRejectsNonDirector(t *testing.T) {
	svc, _ := newTestService(t)
	actor := models.Actor{Name: "Inspector", Role: models.RoleInspector, Province: models.ProvinceBadajoz}

	_, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSubmitTypeIEntersInspection(t *testing.T) {
	svc, _ := newTestService(t)
	actor := directorActor()

	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		Draft:          true,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	updated, err := svc.Submit(context.Background(), actor, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatePendingInspection, updated.State)
	require.Len(t, updated.History, 2)
	require.Equal(t, models.ActionSubmit, updated.History[1].Action)
}

func TestSubmitTypeIIRoutesToCentral(t *testing.T) {
	svc, _ := newTestService(t)
	actor := directorActor()

	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeII,
		Draft:          true,
		RequestPayload: typeIIPayload(),
	})
	require.NoError(t, err)

	updated, err := svc.Submit(context.Background(), actor, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatePendingCentral, updated.State)
	require.Equal(t, models.ActionSubmit, updated.History.Last().Action)
}

func TestTypeIRejectionLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	director := directorActor()

	req, err := svc.Create(context.Background(), director, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		Draft:          true,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), director, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatePendingInspection, submitted.State)

	inspector := models.Actor{Name: "Carlos Vega", Role: models.RoleInspector, Province: models.ProvinceBadajoz}
	inspected, err := svc.Inspect(context.Background(), inspector, req.ID, dto.InspectRequest{
		Verdict:      dto.VerdictUnfavorable,
		Observations: "la documentación no justifica la ausencia",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatePendingCentral, inspected.State)

	dg := models.Actor{Name: "DG FP", Role: models.RoleDirectorGeneral}
	rejected, err := svc.Resolve(context.Background(), dg, req.ID, dto.ResolveRequest{
		Outcome:      models.StateRejected,
		Observations: "se desestima la solicitud",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateRejected, rejected.State)

	persisted := store.requests[req.ID]
	require.Len(t, persisted.History, 4)
	steps := []struct {
		action models.ActionKind
		state  models.RequestState
	}{
		{models.ActionCreate, models.StateDraft},
		{models.ActionSubmit, models.StatePendingInspection},
		{models.ActionInspectUnfavorable, models.StatePendingCentral},
		{models.ActionResolveReject, models.StateRejected},
	}
	for i, step := range steps {
		require.Equal(t, step.action, persisted.History[i].Action)
		require.Equal(t, step.state, persisted.History[i].ResultingState)
	}
}

func TestSubmitInvalidDraftLeavesRecordUntouched(t *testing.T) {
	svc, store := newTestService(t)
	actor := directorActor()

	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType: models.AnnexTypeI,
		Draft:     true,
		RequestPayload: dto.RequestPayload{
			Students: []string{"11111111H"},
		},
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), actor, req.ID)
	require.Error(t, err)
	require.True(t, appErrors.IsValidation(err))

	persisted, ok := store.requests[req.ID]
	require.True(t, ok)
	require.Equal(t, models.StateDraft, persisted.State)
	require.Len(t, persisted.History, 1)
}

func submitTypeVIIIA(t *testing.T, svc *RequestService) *models.Request {
	t.Helper()
	actor := directorActor()
	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType: models.AnnexTypeVIIIA,
		RequestPayload: dto.RequestPayload{
			Students:        []string{"11111111H"},
			ExtraCondition:  ExtraConditions[0],
			CompanyName:     "Dehesa Sur SL",
			CompanyLocality: "Zafra",
			CompanyProvince: models.ProvinceBadajoz,
			CompanyTutor:    "Marta Gil",
			AgreementNumber: "20250101-Dehesa Sur",
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatePendingInspection, req.State)
	return req
}

func TestInspectUnfavorableStillAdvancesToResolution(t *testing.T) {
	svc, _ := newTestService(t)
	req := submitTypeVIIIA(t, svc)
	inspector := models.Actor{Name: "Carlos Vega", Role: models.RoleInspector, Province: models.ProvinceBadajoz}

	updated, err := svc.Inspect(context.Background(), inspector, req.ID, dto.InspectRequest{
		Verdict:      dto.VerdictUnfavorable,
		Observations: "la empresa no acredita tutor",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatePendingDelegated, updated.State)
	require.Equal(t, "la empresa no acredita tutor", updated.InspectionObservations)
	last := updated.History.Last()
	require.Equal(t, models.ActionInspectUnfavorable, last.Action)
	require.Equal(t, models.StatePendingDelegated, last.ResultingState)
}

func TestInspectUnfavorableRequiresObservations(t *testing.T) {
	svc, _ := newTestService(t)
	req := submitTypeVIIIA(t, svc)
	inspector := models.Actor{Name: "Carlos Vega", Role: models.RoleInspector, Province: models.ProvinceBadajoz}

	_, err := svc.Inspect(context.Background(), inspector, req.ID, dto.InspectRequest{Verdict: dto.VerdictUnfavorable})
	require.Error(t, err)
	require.True(t, appErrors.IsValidation(err))
}

func TestInspectRejectsWrongProvince(t *testing.T) {
	svc, _ := newTestService(t)
	req := submitTypeVIIIA(t, svc)
	inspector := models.Actor{Name: "Eva Rubio", Role: models.RoleInspector, Province: models.ProvinceCaceres}

	_, err := svc.Inspect(context.Background(), inspector, req.ID, dto.InspectRequest{Verdict: dto.VerdictFavorable})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestResolveRejectionRequiresObservations(t *testing.T) {
	svc, _ := newTestService(t)
	actor := directorActor()
	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeII,
		RequestPayload: typeIIPayload(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatePendingCentral, req.State)

	dg := models.Actor{Name: "DG FP", Role: models.RoleDirectorGeneral}
	_, err = svc.Resolve(context.Background(), dg, req.ID, dto.ResolveRequest{Outcome: models.StateRejected})
	require.Error(t, err)
	require.True(t, appErrors.IsValidation(err))

	resolved, err := svc.Resolve(context.Background(), dg, req.ID, dto.ResolveRequest{
		Outcome:      models.StateRejected,
		Observations: "documentación insuficiente",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateRejected, resolved.State)
	require.Equal(t, "DG FP", resolved.ResolvedBy)
}

func TestDelegateCannotResolveCentralTrack(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeII,
		RequestPayload: typeIIPayload(),
	})
	require.NoError(t, err)

	delegate := models.Actor{Name: "Delegado", Role: models.RoleDelegate, Province: models.ProvinceBadajoz}
	_, err = svc.Resolve(context.Background(), delegate, req.ID, dto.ResolveRequest{Outcome: models.StateApproved})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAnnulmentFlow(t *testing.T) {
	svc, _ := newTestService(t)
	actor := directorActor()
	req, err := svc.Create(context.Background(), actor, dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	pending, err := svc.RequestAnnulment(context.Background(), actor, req.ID, "duplicada")
	require.NoError(t, err)
	require.Equal(t, models.StatePendingAnnulment, pending.State)
	require.Equal(t, actor.Name, pending.AnnulmentRequester)

	super := models.Actor{Name: "Admin", Role: models.RoleSuperuser}
	trashed, err := svc.ConfirmAnnulment(context.Background(), super, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateTrashed, trashed.State)
	require.Empty(t, trashed.AnnulmentRequester)
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	super := models.Actor{Name: "Admin", Role: models.RoleSuperuser}
	trashed, err := svc.SoftDelete(context.Background(), super, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateTrashed, trashed.State)

	restored, err := svc.Restore(context.Background(), super, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateDraft, restored.State)

	actions := make([]models.ActionKind, 0, len(restored.History))
	for _, entry := range restored.History {
		actions = append(actions, entry.Action)
	}
	require.Equal(t, []models.ActionKind{models.ActionCreate, models.ActionTrash, models.ActionRestore}, actions)
}

func TestPurgeOnlyFromTrash(t *testing.T) {
	svc, store := newTestService(t)
	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	super := models.Actor{Name: "Admin", Role: models.RoleSuperuser}
	err = svc.Purge(context.Background(), super, req.ID)
	require.Error(t, err)

	_, err = svc.SoftDelete(context.Background(), super, req.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Purge(context.Background(), super, req.ID))
	_, ok := store.requests[req.ID]
	require.False(t, ok)
}

func TestForceStateRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	super := models.Actor{Name: "Admin", Role: models.RoleSuperuser}
	_, err = svc.ForceState(context.Background(), super, req.ID, dto.OverrideStateRequest{State: models.StateApproved})
	require.Error(t, err)
	require.True(t, appErrors.IsValidation(err))

	forced, err := svc.ForceState(context.Background(), super, req.ID, dto.OverrideStateRequest{
		State:  models.StateApproved,
		Reason: "corrección administrativa",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, forced.State)
	require.Equal(t, models.ActionForceState, forced.History.Last().Action)
}

func TestGetEnforcesVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeI,
		RequestPayload: typeIPayload(),
	})
	require.NoError(t, err)

	other := models.Actor{Name: "Otro Director", Role: models.RoleDirector, Province: models.ProvinceCaceres, CenterCode: "10003905"}
	_, err = svc.Get(context.Background(), other, req.ID)
	require.Error(t, err)

	got, err := svc.Get(context.Background(), directorActor(), req.ID)
	require.NoError(t, err)
	require.True(t, got.Read)
}

func TestPendingCountPerRole(t *testing.T) {
	svc, _ := newTestService(t)
	_ = submitTypeVIIIA(t, svc)
	_, err := svc.Create(context.Background(), directorActor(), dto.CreateRequestRequest{
		AnnexType:      models.AnnexTypeII,
		RequestPayload: typeIIPayload(),
	})
	require.NoError(t, err)

	inspector := models.Actor{Name: "Carlos Vega", Role: models.RoleInspector, Province: models.ProvinceBadajoz}
	count, _, err := svc.PendingCount(context.Background(), inspector)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	dg := models.Actor{Name: "DG FP", Role: models.RoleDirectorGeneral}
	count, _, err = svc.PendingCount(context.Background(), dg)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	otherInspector := models.Actor{Name: "Eva Rubio", Role: models.RoleInspector, Province: models.ProvinceCaceres}
	count, _, err = svc.PendingCount(context.Background(), otherInspector)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestPurgeExpiredHonoursRetention(t *testing.T) {
	svc, store := newTestService(t)
	old := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)
	store.requests["2024-06006899-I-1"] = &models.Request{
		ID:         "2024-06006899-I-1",
		AnnexType:  models.AnnexTypeI,
		CenterCode: "06006899",
		State:      models.StateTrashed,
		History: models.AuditTrail{
			{Action: models.ActionCreate, ResultingState: models.StateDraft, Timestamp: old},
			{Action: models.ActionTrash, ResultingState: models.StateTrashed, Timestamp: old},
		},
	}
	store.requests["2025-06006899-I-1"] = &models.Request{
		ID:         "2025-06006899-I-1",
		AnnexType:  models.AnnexTypeI,
		CenterCode: "06006899",
		State:      models.StateTrashed,
		History: models.AuditTrail{
			{Action: models.ActionTrash, ResultingState: models.StateTrashed, Timestamp: time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)},
		},
	}

	purged, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, purged)
	_, oldGone := store.requests["2024-06006899-I-1"]
	require.False(t, oldGone)
	_, recentKept := store.requests["2025-06006899-I-1"]
	require.True(t, recentKept)
}
