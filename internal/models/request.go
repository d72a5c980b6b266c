package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnnexType enumerates the supported administrative request categories.
type AnnexType string

const (
	AnnexTypeI     AnnexType = "I"
	AnnexTypeII    AnnexType = "II"
	AnnexTypeIVA   AnnexType = "IV-A"
	AnnexTypeIVB   AnnexType = "IV-B"
	AnnexTypeV     AnnexType = "V"
	AnnexTypeVIIIA AnnexType = "VIII-A"
	AnnexTypeVIIIB AnnexType = "VIII-B"
	AnnexTypeXIII  AnnexType = "XIII"
)

// AnnexTypes lists every supported annex type.
var AnnexTypes = []AnnexType{
	AnnexTypeI, AnnexTypeII, AnnexTypeIVA, AnnexTypeIVB,
	AnnexTypeV, AnnexTypeVIIIA, AnnexTypeVIIIB, AnnexTypeXIII,
}

var annexLabels = map[AnnexType]string{
	AnnexTypeI:     "Anexo I - Solicitud de autorización de FEOE en curso único",
	AnnexTypeII:    "Anexo II - Solicitud de autorización de FEOE en periodo intensivo",
	AnnexTypeIVA:   "Anexo IV-A - Solicitud de FEOE en Organismo Público",
	AnnexTypeIVB:   "Anexo IV-B - Solicitud de FEOE en el propio Centro Educativo",
	AnnexTypeV:     "Anexo V - Solicitud de dualización de Ciclos Formativos",
	AnnexTypeVIIIA: "Anexo VIII-A - Solicitud condiciones extraordinarias",
	AnnexTypeVIIIB: "Anexo VIII-B - Condiciones Extraordinarias mes de Julio",
	AnnexTypeXIII:  "Anexo XIII - Solicitud de adaptación de periodo FEOE con alumnos NEFE",
}

// Valid reports whether the annex type is part of the closed catalogue.
func (t AnnexType) Valid() bool {
	_, ok := annexLabels[t]
	return ok
}

// Label returns the official catalogue title for the annex type.
func (t AnnexType) Label() string {
	return annexLabels[t]
}

// RequiresInspection reports whether the type passes through provincial
// inspection before resolution.
func (t AnnexType) RequiresInspection() bool {
	switch t {
	case AnnexTypeI, AnnexTypeVIIIA, AnnexTypeVIIIB, AnnexTypeXIII:
		return true
	}
	return false
}

// RequestState enumerates lifecycle states of a request.
type RequestState string

const (
	StateDraft              RequestState = "DRAFT"
	StatePendingInspection  RequestState = "PENDING_INSPECTION"
	StatePendingCentral     RequestState = "PENDING_RESOLUTION_CENTRAL"
	StatePendingDelegated   RequestState = "PENDING_RESOLUTION_DELEGATED"
	StateApproved           RequestState = "APPROVED"
	StateRejected           RequestState = "REJECTED"
	StatePendingAnnulment   RequestState = "PENDING_ANNULMENT"
	StateTrashed            RequestState = "TRASHED"
)

// RequestStates lists every lifecycle state.
var RequestStates = []RequestState{
	StateDraft, StatePendingInspection, StatePendingCentral, StatePendingDelegated,
	StateApproved, StateRejected, StatePendingAnnulment, StateTrashed,
}

// Valid reports whether the state belongs to the lifecycle.
func (s RequestState) Valid() bool {
	for _, known := range RequestStates {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends the resolution flow.
func (s RequestState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// ResolutionTrack identifies the authority that resolves a request.
type ResolutionTrack string

const (
	TrackCentral   ResolutionTrack = "CENTRAL"
	TrackDelegated ResolutionTrack = "DELEGATED"
)

// ActionKind is the closed vocabulary of audit trail actions.
type ActionKind string

const (
	ActionCreate             ActionKind = "CREATE"
	ActionSubmit             ActionKind = "SUBMIT"
	ActionInspectFavorable   ActionKind = "INSPECT_FAVORABLE"
	ActionInspectUnfavorable ActionKind = "INSPECT_UNFAVORABLE"
	ActionResolveApprove     ActionKind = "RESOLVE_APPROVE"
	ActionResolveReject      ActionKind = "RESOLVE_REJECT"
	ActionAmend              ActionKind = "AMEND"
	ActionAnnulmentRequest   ActionKind = "ANNULMENT_REQUEST"
	ActionAnnulmentConfirm   ActionKind = "ANNULMENT_CONFIRM"
	ActionTrash              ActionKind = "TRASH"
	ActionRestore            ActionKind = "RESTORE"
	ActionForceState         ActionKind = "FORCE_STATE"
)

// AuditEntry is a single, immutable history record of a request.
type AuditEntry struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	ActorName      string       `json:"actorName"`
	ActorRole      UserRole     `json:"actorRole"`
	Action         ActionKind   `json:"action"`
	ResultingState RequestState `json:"resultingState"`
	Observations   string       `json:"observations,omitempty"`
}

// Document references an uploaded attachment; content lives in blob storage.
type Document struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Tag  string `json:"tag,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Document tags used by completeness checks.
const (
	DocumentTagPlan      = "PLAN"
	DocumentTagAgreement = "AGREEMENT"
)

// StudentSet holds the DNIs of involved students, without duplicates.
type StudentSet []string

// Contains reports membership of a DNI in the set.
func (s StudentSet) Contains(dni string) bool {
	for _, existing := range s {
		if existing == dni {
			return true
		}
	}
	return false
}

// Add appends a DNI when not already present.
func (s StudentSet) Add(dni string) StudentSet {
	if dni == "" || s.Contains(dni) {
		return s
	}
	return append(s, dni)
}

// DocumentList is an ordered collection of attached documents.
type DocumentList []Document

// HasTag reports whether any document carries the given subtype tag.
func (d DocumentList) HasTag(tag string) bool {
	for _, doc := range d {
		if doc.Tag == tag {
			return true
		}
	}
	return false
}

// AuditTrail is the append-only history of a request.
type AuditTrail []AuditEntry

// Last returns the most recent entry, or nil when the trail is empty.
func (t AuditTrail) Last() *AuditEntry {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Find returns the first entry matching the action kind, or nil.
func (t AuditTrail) Find(action ActionKind) *AuditEntry {
	for i := range t {
		if t[i].Action == action {
			return &t[i]
		}
	}
	return nil
}

// Request is the central workflow entity: an annex request submitted by a
// school director and tracked until final decision or withdrawal.
type Request struct {
	ID           string       `db:"id" json:"id"`
	AnnexType    AnnexType    `db:"annex_type" json:"annexType"`
	State        RequestState `db:"state" json:"state"`
	CenterCode   string       `db:"center_code" json:"centerCode"`
	CreatedDate  string       `db:"created_date" json:"createdDate"`
	Students     StudentSet   `db:"students" json:"students"`
	Documents    DocumentList `db:"documents" json:"documents"`
	History      AuditTrail   `db:"history" json:"history"`
	Read         bool         `db:"read" json:"read"`

	AnnulmentRequester string `db:"annulment_requester" json:"annulmentRequester,omitempty"`

	// Type-specific optional fields; populated depending on AnnexType.
	Motive                string `db:"motive" json:"motive,omitempty"`
	MotiveOther           string `db:"motive_other" json:"motiveOther,omitempty"`
	StartDate             string `db:"start_date" json:"startDate,omitempty"`
	EndDate               string `db:"end_date" json:"endDate,omitempty"`
	AgreementNumber       string `db:"agreement_number" json:"agreementNumber,omitempty"`
	PublicBody            string `db:"public_body" json:"publicBody,omitempty"`
	DestinationTutor      string `db:"destination_tutor" json:"destinationTutor,omitempty"`
	DestinationCenterCode string `db:"destination_center_code" json:"destinationCenterCode,omitempty"`
	DualCourse            string `db:"dual_course" json:"dualCourse,omitempty"`
	ExtraCondition        string `db:"extra_condition" json:"extraCondition,omitempty"`
	ExtraJustification    string `db:"extra_justification" json:"extraJustification,omitempty"`
	CompanyName           string `db:"company_name" json:"companyName,omitempty"`
	CompanyLocality       string `db:"company_locality" json:"companyLocality,omitempty"`
	CompanyProvince       string `db:"company_province" json:"companyProvince,omitempty"`
	CompanyForeignAddress string `db:"company_foreign_address" json:"companyForeignAddress,omitempty"`
	CompanyTutor          string `db:"company_tutor" json:"companyTutor,omitempty"`
	NeedsJustification    string `db:"needs_justification" json:"needsJustification,omitempty"`

	InspectionObservations string `db:"inspection_observations" json:"inspectionObservations,omitempty"`
	ResolutionObservations string `db:"resolution_observations" json:"resolutionObservations,omitempty"`
	ResolvedBy             string `db:"resolved_by" json:"resolvedBy,omitempty"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	States       []RequestState
	AnnexType    AnnexType
	CenterCode   string
	CenterCodes  []string
	Year         string
	IncludeTrash bool
	Limit        int
	Offset       int
}

// Value implements driver.Valuer so the set is stored as JSONB.
func (s StudentSet) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *StudentSet) Scan(src interface{}) error {
	return scanJSON(src, s, "students")
}

// Value implements driver.Valuer so documents are stored as JSONB.
func (d DocumentList) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DocumentList) Scan(src interface{}) error {
	return scanJSON(src, d, "documents")
}

// Value implements driver.Valuer so history is stored as JSONB.
func (t AuditTrail) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *AuditTrail) Scan(src interface{}) error {
	return scanJSON(src, t, "history")
}

func scanJSON(src, dest interface{}, column string) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported %s column type %T", column, src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
