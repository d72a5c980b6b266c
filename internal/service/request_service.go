package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/models"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	Update(ctx context.Context, req *models.Request, expectedState models.RequestState) error
	Delete(ctx context.Context, id string) error
}

type centerDirectory interface {
	GetByCode(ctx context.Context, code string) (*models.Center, error)
}

type studentDirectory interface {
	GetByDNI(ctx context.Context, dni string) (*models.Student, error)
}

type pendingCounterCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type transitionRecorder interface {
	RecordWorkflowTransition(action models.ActionKind, state models.RequestState)
	ObserveDBQuery(label string, duration time.Duration)
}

// RequestService is the lifecycle engine: it authorises, validates, routes
// and applies every state transition, appending exactly one audit entry per
// successful transition and none on failure.
type RequestService struct {
	store     requestStore
	centers   centerDirectory
	students  studentDirectory
	validator *Validator
	allocator *IdentifierAllocator
	policy    AccessPolicy
	cache     pendingCounterCache
	metrics   transitionRecorder
	logger    *zap.Logger
	now       func() time.Time

	cacheTTL       time.Duration
	trashRetention time.Duration

	// Per-record serialization for concurrent transition attempts.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// RequestServiceOption configures the service.
type RequestServiceOption func(*RequestService)

// WithPendingCache enables redis-backed pending counters.
func WithPendingCache(cache pendingCounterCache, ttl time.Duration) RequestServiceOption {
	return func(s *RequestService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTransitionRecorder wires transition metrics.
func WithTransitionRecorder(metrics transitionRecorder) RequestServiceOption {
	return func(s *RequestService) {
		s.metrics = metrics
	}
}

// WithTrashRetention overrides the retention window used by PurgeExpired.
func WithTrashRetention(retention time.Duration) RequestServiceOption {
	return func(s *RequestService) {
		if retention > 0 {
			s.trashRetention = retention
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RequestServiceOption {
	return func(s *RequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRequestService constructs the workflow engine.
func NewRequestService(store requestStore, centers centerDirectory, students studentDirectory, validator *Validator, logger *zap.Logger, opts ...RequestServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewValidator(time.August)
	}
	svc := &RequestService{
		store:          store,
		centers:        centers,
		students:       students,
		validator:      validator,
		allocator:      NewIdentifierAllocator(),
		logger:         logger,
		now:            time.Now,
		cacheTTL:       time.Minute,
		trashRetention: 30 * 24 * time.Hour,
		locks:          make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create opens a new request for the director's center. Unless draft is set,
// the record is validated and routed straight to inspection or resolution.
func (s *RequestService) Create(ctx context.Context, actor models.Actor, payload dto.CreateRequestRequest) (*models.Request, error) {
	if actor.Role != models.RoleDirector || actor.CenterCode == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a center director may create requests")
	}
	if !payload.AnnexType.Valid() {
		return nil, appErrors.Validation("annexType", "unknown annex type")
	}
	if _, err := s.centers.GetByCode(ctx, actor.CenterCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Validation("centerCode", "the actor's center is not registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up center")
	}

	now := s.now().UTC()
	req := &models.Request{
		AnnexType:   payload.AnnexType,
		CenterCode:  actor.CenterCode,
		CreatedDate: now.Format("2006-01-02"),
	}
	if err := s.applyPayload(ctx, req, payload.RequestPayload); err != nil {
		return nil, err
	}

	target := models.StateDraft
	if !payload.Draft {
		if err := s.validator.Validate(req); err != nil {
			return nil, err
		}
		target = s.submittedState(req.AnnexType)
	}
	req.State = target
	req.History = models.AuditTrail{s.newEntry(actor, models.ActionCreate, target, "")}

	s.allocator.Lock()
	defer s.allocator.Unlock()
	existing, err := s.store.List(ctx, models.RequestFilter{
		CenterCode:   req.CenterCode,
		Year:         now.Format("2006"),
		IncludeTrash: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot existing requests")
	}
	req.ID = s.allocator.Allocate(req.CenterCode, now.Format("2006"), req.AnnexType, existing)

	if err := s.store.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.afterTransition(ctx, models.ActionCreate, target)
	return req, nil
}

// Submit sends a draft onwards through inspection or straight to resolution.
func (s *RequestService) Submit(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanSubmit(actor, req) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "only the owning director may submit")
		}
		if req.State != models.StateDraft {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "only drafts can be submitted")
		}
		if err := s.validator.Validate(req); err != nil {
			return "", err
		}
		req.State = s.submittedState(req.AnnexType)
		req.History = append(req.History, s.newEntry(actor, models.ActionSubmit, req.State, ""))
		return models.ActionSubmit, nil
	})
}

// Inspect records the provincial verdict. Both verdicts forward the request
// to its resolution track; an unfavorable verdict travels with mandatory
// observations so the resolver can issue a negative resolution.
func (s *RequestService) Inspect(ctx context.Context, actor models.Actor, id string, verdict dto.InspectRequest) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanInspect(actor, req, province) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "inspection is restricted to the provincial inspector")
		}
		if req.State != models.StatePendingInspection {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "the request is not awaiting inspection")
		}
		action := models.ActionInspectFavorable
		if verdict.Verdict == dto.VerdictUnfavorable {
			if strings.TrimSpace(verdict.Observations) == "" {
				return "", appErrors.Validation("observations", "an unfavorable verdict requires observations")
			}
			action = models.ActionInspectUnfavorable
		}
		req.State = ResolutionState(req.AnnexType)
		req.InspectionObservations = verdict.Observations
		req.History = append(req.History, s.newEntry(actor, action, req.State, verdict.Observations))
		return action, nil
	})
}

// Resolve issues the final decision for the request's track.
func (s *RequestService) Resolve(ctx context.Context, actor models.Actor, id string, resolution dto.ResolveRequest) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if req.State != models.StatePendingCentral && req.State != models.StatePendingDelegated {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "the request is not awaiting resolution")
		}
		if !s.policy.CanResolve(actor, req, province) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "the actor is not the resolving authority for this request")
		}
		action := models.ActionResolveApprove
		if resolution.Outcome == models.StateRejected {
			if strings.TrimSpace(resolution.Observations) == "" {
				return "", appErrors.Validation("observations", "a rejection requires observations")
			}
			action = models.ActionResolveReject
		} else if resolution.Outcome != models.StateApproved {
			return "", appErrors.Validation("outcome", "outcome must be APPROVED or REJECTED")
		}
		req.State = resolution.Outcome
		req.ResolutionObservations = resolution.Observations
		req.ResolvedBy = actor.Name
		req.History = append(req.History, s.newEntry(actor, action, req.State, resolution.Observations))
		return action, nil
	})
}

// Amend replaces the editable payload while the request is still in flight.
// Submitted records are re-validated so they stay complete.
func (s *RequestService) Amend(ctx context.Context, actor models.Actor, id string, payload dto.AmendRequestRequest) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanEdit(actor, req) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "only the owning director may amend the request")
		}
		if err := s.applyPayload(ctx, req, payload.RequestPayload); err != nil {
			return "", err
		}
		if req.State != models.StateDraft {
			if err := s.validator.Validate(req); err != nil {
				return "", err
			}
		}
		req.History = append(req.History, s.newEntry(actor, models.ActionAmend, req.State, ""))
		return models.ActionAmend, nil
	})
}

// RequestAnnulment opens the two-phase withdrawal flow. Any actor who can see
// the record may request it; only the superuser confirms.
func (s *RequestService) RequestAnnulment(ctx context.Context, actor models.Actor, id, reason string) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanRequestAnnulment(actor, req, province) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "the actor cannot see this request")
		}
		switch req.State {
		case models.StateDraft, models.StateTrashed, models.StatePendingAnnulment:
			return "", appErrors.Clone(appErrors.ErrIllegalState, "annulment cannot be requested from the current state")
		}
		if strings.TrimSpace(reason) == "" {
			return "", appErrors.Validation("reason", "a reason is required to request annulment")
		}
		req.State = models.StatePendingAnnulment
		req.AnnulmentRequester = actor.Name
		req.History = append(req.History, s.newEntry(actor, models.ActionAnnulmentRequest, req.State, reason))
		return models.ActionAnnulmentRequest, nil
	})
}

// ConfirmAnnulment moves an annulment-pending request to the trash.
func (s *RequestService) ConfirmAnnulment(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanAdminister(actor) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "confirming annulments is restricted")
		}
		if req.State != models.StatePendingAnnulment {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "no annulment is pending")
		}
		req.State = models.StateTrashed
		req.AnnulmentRequester = ""
		req.History = append(req.History, s.newEntry(actor, models.ActionAnnulmentConfirm, req.State, ""))
		return models.ActionAnnulmentConfirm, nil
	})
}

// SoftDelete trashes a record directly, bypassing the annulment request step.
func (s *RequestService) SoftDelete(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanAdminister(actor) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "direct deletion is restricted")
		}
		if req.State == models.StateTrashed {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "the request is already in the trash")
		}
		req.State = models.StateTrashed
		req.AnnulmentRequester = ""
		req.History = append(req.History, s.newEntry(actor, models.ActionTrash, req.State, ""))
		return models.ActionTrash, nil
	})
}

// Restore returns a trashed record to DRAFT.
func (s *RequestService) Restore(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanAdminister(actor) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "restoring is restricted")
		}
		if req.State != models.StateTrashed {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "only trashed requests can be restored")
		}
		req.State = models.StateDraft
		req.History = append(req.History, s.newEntry(actor, models.ActionRestore, req.State, ""))
		return models.ActionRestore, nil
	})
}

// Purge removes a trashed record permanently.
func (s *RequestService) Purge(ctx context.Context, actor models.Actor, id string) error {
	if !s.policy.CanAdminister(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "purging is restricted")
	}
	unlock := s.lockRecord(id)
	defer unlock()

	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if req.State != models.StateTrashed {
		return appErrors.Clone(appErrors.ErrIllegalState, "only trashed requests can be purged")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge request")
	}
	s.afterTransition(ctx, models.ActionTrash, models.StateTrashed)
	return nil
}

// ForceState reassigns an arbitrary state for exceptional administrative
// correction. The audit entry is marked as a forced change.
func (s *RequestService) ForceState(ctx context.Context, actor models.Actor, id string, override dto.OverrideStateRequest) (*models.Request, error) {
	return s.transition(ctx, id, func(req *models.Request, province string) (models.ActionKind, error) {
		if !s.policy.CanAdminister(actor) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "forced state changes are restricted")
		}
		if !override.State.Valid() {
			return "", appErrors.Validation("state", "unknown state")
		}
		if strings.TrimSpace(override.Reason) == "" {
			return "", appErrors.Validation("reason", "a reason is required for a forced change")
		}
		if override.State == req.State {
			return "", appErrors.Clone(appErrors.ErrIllegalState, "the request is already in that state")
		}
		req.State = override.State
		if override.State == models.StatePendingAnnulment {
			req.AnnulmentRequester = actor.Name
		} else {
			req.AnnulmentRequester = ""
		}
		req.History = append(req.History, s.newEntry(actor, models.ActionForceState, req.State, override.Reason))
		return models.ActionForceState, nil
	})
}

// Get returns a single request enforcing visibility, marking it read.
func (s *RequestService) Get(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	province := s.provinceOf(ctx, req.CenterCode)
	if !s.policy.CanView(actor, req, province) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "the actor cannot see this request")
	}
	if !req.Read {
		req.Read = true
		if err := s.store.Update(ctx, req, req.State); err != nil {
			s.logger.Warn("failed to persist read flag", zap.String("id", id), zap.Error(err))
		}
	}
	return req, nil
}

// List returns the requests visible to the actor, filtered and sorted.
func (s *RequestService) List(ctx context.Context, actor models.Actor, query dto.RequestQuery) ([]models.Request, error) {
	filter := models.RequestFilter{
		AnnexType:    query.AnnexType,
		IncludeTrash: actor.Role == models.RoleSuperuser,
		Limit:        query.Limit,
		Offset:       query.Offset,
	}
	if query.State != "" {
		if !query.State.Valid() {
			return nil, appErrors.Validation("state", "unknown state")
		}
		filter.States = []models.RequestState{query.State}
	}
	if actor.Role == models.RoleDirector {
		filter.CenterCode = actor.CenterCode
	}
	start := time.Now()
	all, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("requests_list", time.Since(start))
	}

	centers := make(map[string]*models.Center)
	visible := make([]models.Request, 0, len(all))
	for i := range all {
		req := all[i]
		center := s.centerFor(ctx, centers, req.CenterCode)
		province := ""
		if center != nil {
			province = center.Province
		}
		if !s.policy.CanView(actor, &req, province) {
			continue
		}
		if query.State == "" && req.State == models.StateTrashed {
			// The trash has its own listing.
			continue
		}
		if query.CenterText != "" && !centerMatches(center, query.CenterText) {
			continue
		}
		if query.StudentText != "" && !s.studentMatches(ctx, req.Students, query.StudentText) {
			continue
		}
		visible = append(visible, req)
	}
	s.sortRequests(ctx, visible, centers, query.SortBy, query.SortOrder)
	return visible, nil
}

// ListTrash returns trashed records, superuser only.
func (s *RequestService) ListTrash(ctx context.Context, actor models.Actor) ([]models.Request, error) {
	if !s.policy.CanAdminister(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "the trash is restricted")
	}
	return s.store.List(ctx, models.RequestFilter{
		States:       []models.RequestState{models.StateTrashed},
		IncludeTrash: true,
	})
}

// PendingCount computes the number of requests awaiting the actor's action.
// The second return reports whether the value came from the cache.
func (s *RequestService) PendingCount(ctx context.Context, actor models.Actor) (int, bool, error) {
	key := fmt.Sprintf("pending:%s:%s:%s", actor.Role, actor.Province, actor.CenterCode)
	if s.cache != nil {
		var cached int
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}
	all, err := s.store.List(ctx, models.RequestFilter{IncludeTrash: false})
	if err != nil {
		return 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	centers := make(map[string]*models.Center)
	count := s.policy.PendingCount(actor, all, func(code string) string {
		if center := s.centerFor(ctx, centers, code); center != nil {
			return center.Province
		}
		return ""
	})
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache pending count", zap.Error(err))
		}
	}
	return count, false, nil
}

// PurgeExpired removes trashed records whose trash entry is older than the
// retention window. Run periodically by the background sweeper.
func (s *RequestService) PurgeExpired(ctx context.Context) (int, error) {
	trashed, err := s.store.List(ctx, models.RequestFilter{
		States:       []models.RequestState{models.StateTrashed},
		IncludeTrash: true,
	})
	if err != nil {
		return 0, fmt.Errorf("list trashed requests: %w", err)
	}
	cutoff := s.now().UTC().Add(-s.trashRetention)
	purged := 0
	for i := range trashed {
		last := trashed[i].History.Last()
		if last == nil || last.Timestamp.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, trashed[i].ID); err != nil {
			s.logger.Warn("failed to purge expired request", zap.String("id", trashed[i].ID), zap.Error(err))
			continue
		}
		purged++
	}
	if purged > 0 {
		s.invalidatePending(ctx)
	}
	return purged, nil
}

// transition loads the record under its per-id lock, applies the mutation and
// persists it with an optimistic state guard. On any error the record is left
// untouched and no audit entry is stored.
func (s *RequestService) transition(ctx context.Context, id string, apply func(req *models.Request, centerProvince string) (models.ActionKind, error)) (*models.Request, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := req.State
	province := s.provinceOf(ctx, req.CenterCode)

	action, err := apply(req, province)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, req, previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "the request changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	s.afterTransition(ctx, action, req.State)
	return req, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

func (s *RequestService) applyPayload(ctx context.Context, req *models.Request, payload dto.RequestPayload) error {
	students := models.StudentSet{}
	for _, dni := range payload.Students {
		dni = strings.TrimSpace(dni)
		if dni == "" {
			continue
		}
		if _, err := s.students.GetByDNI(ctx, dni); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Validation("students", fmt.Sprintf("unknown student %s", dni))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
		}
		students = students.Add(dni)
	}
	documents := make(models.DocumentList, 0, len(payload.Documents))
	for _, doc := range payload.Documents {
		if strings.TrimSpace(doc.Name) == "" {
			return appErrors.Validation("documents", "document names cannot be empty")
		}
		documents = append(documents, models.Document{
			Name: doc.Name,
			Date: s.now().UTC().Format("2006-01-02"),
			Tag:  doc.Tag,
			URL:  doc.URL,
		})
	}
	req.Students = students
	req.Documents = documents
	req.Motive = payload.Motive
	req.MotiveOther = payload.MotiveOther
	req.StartDate = payload.StartDate
	req.EndDate = payload.EndDate
	req.AgreementNumber = payload.AgreementNumber
	req.PublicBody = payload.PublicBody
	req.DestinationTutor = payload.DestinationTutor
	req.DestinationCenterCode = payload.DestinationCenterCode
	req.DualCourse = payload.DualCourse
	req.ExtraCondition = payload.ExtraCondition
	req.ExtraJustification = payload.ExtraJustification
	req.CompanyName = payload.CompanyName
	req.CompanyLocality = payload.CompanyLocality
	req.CompanyProvince = payload.CompanyProvince
	req.CompanyForeignAddress = payload.CompanyForeignAddress
	req.CompanyTutor = payload.CompanyTutor
	req.NeedsJustification = payload.NeedsJustification
	return nil
}

func (s *RequestService) submittedState(annexType models.AnnexType) models.RequestState {
	if annexType.RequiresInspection() {
		return models.StatePendingInspection
	}
	return ResolutionState(annexType)
}

func (s *RequestService) newEntry(actor models.Actor, action models.ActionKind, state models.RequestState, observations string) models.AuditEntry {
	return models.AuditEntry{
		ID:             uuid.NewString(),
		Timestamp:      s.now().UTC(),
		ActorName:      actor.Name,
		ActorRole:      actor.Role,
		Action:         action,
		ResultingState: state,
		Observations:   observations,
	}
}

func (s *RequestService) afterTransition(ctx context.Context, action models.ActionKind, state models.RequestState) {
	if s.metrics != nil {
		s.metrics.RecordWorkflowTransition(action, state)
	}
	s.invalidatePending(ctx)
}

func (s *RequestService) invalidatePending(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "pending:*"); err != nil {
		s.logger.Warn("failed to invalidate pending counters", zap.Error(err))
	}
}

func (s *RequestService) lockRecord(id string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (s *RequestService) provinceOf(ctx context.Context, centerCode string) string {
	center, err := s.centers.GetByCode(ctx, centerCode)
	if err != nil || center == nil {
		return ""
	}
	return center.Province
}

func (s *RequestService) centerFor(ctx context.Context, cache map[string]*models.Center, code string) *models.Center {
	if center, ok := cache[code]; ok {
		return center
	}
	center, err := s.centers.GetByCode(ctx, code)
	if err != nil {
		cache[code] = nil
		return nil
	}
	cache[code] = center
	return center
}

func centerMatches(center *models.Center, text string) bool {
	if center == nil {
		return false
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(center.Name), needle) ||
		strings.Contains(strings.ToLower(center.Code), needle)
}

func (s *RequestService) studentMatches(ctx context.Context, dnis models.StudentSet, text string) bool {
	needle := strings.ToLower(text)
	for _, dni := range dnis {
		student, err := s.students.GetByDNI(ctx, dni)
		if err != nil {
			continue
		}
		full := strings.ToLower(student.FirstName + " " + student.LastName)
		if strings.Contains(full, needle) || strings.Contains(strings.ToLower(dni), needle) {
			return true
		}
	}
	return false
}

func (s *RequestService) sortRequests(ctx context.Context, requests []models.Request, centers map[string]*models.Center, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, "desc")
	key := func(req *models.Request) string {
		switch sortBy {
		case "id":
			return req.ID
		case "center":
			if center := s.centerFor(ctx, centers, req.CenterCode); center != nil {
				return center.Name
			}
			return ""
		case "type":
			return string(req.AnnexType)
		case "state":
			return string(req.State)
		default:
			return req.CreatedDate + req.ID
		}
	}
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := key(&requests[i]), key(&requests[j])
		if desc {
			return a > b
		}
		return a < b
	})
}
