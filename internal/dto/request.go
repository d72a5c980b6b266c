package dto

import "github.com/rayuela-fp/feoe-api/internal/models"

// DocumentInput references an already-uploaded attachment.
type DocumentInput struct {
	Name string `json:"name" binding:"required"`
	Tag  string `json:"tag"`
	URL  string `json:"url"`
}

// RequestPayload carries the type-specific fields of an annex request. Which
// fields are mandatory depends on the annex type; the workflow validator owns
// those rules.
type RequestPayload struct {
	Students  []string        `json:"students"`
	Documents []DocumentInput `json:"documents"`

	Motive                string `json:"motive"`
	MotiveOther           string `json:"motiveOther"`
	StartDate             string `json:"startDate"`
	EndDate               string `json:"endDate"`
	AgreementNumber       string `json:"agreementNumber"`
	PublicBody            string `json:"publicBody"`
	DestinationTutor      string `json:"destinationTutor"`
	DestinationCenterCode string `json:"destinationCenterCode"`
	DualCourse            string `json:"dualCourse"`
	ExtraCondition        string `json:"extraCondition"`
	ExtraJustification    string `json:"extraJustification"`
	CompanyName           string `json:"companyName"`
	CompanyLocality       string `json:"companyLocality"`
	CompanyProvince       string `json:"companyProvince"`
	CompanyForeignAddress string `json:"companyForeignAddress"`
	CompanyTutor          string `json:"companyTutor"`
	NeedsJustification    string `json:"needsJustification"`
}

// CreateRequestRequest opens a new annex request. When Draft is true the
// record stays in DRAFT without running type validation.
type CreateRequestRequest struct {
	AnnexType models.AnnexType `json:"annexType" binding:"required"`
	Draft     bool             `json:"draft"`
	RequestPayload
}

// AmendRequestRequest replaces the editable payload of an existing request.
type AmendRequestRequest struct {
	RequestPayload
}

// Inspection verdict values.
const (
	VerdictFavorable   = "FAVORABLE"
	VerdictUnfavorable = "UNFAVORABLE"
)

// InspectRequest records the provincial inspection verdict.
type InspectRequest struct {
	Verdict      string `json:"verdict" binding:"required,oneof=FAVORABLE UNFAVORABLE"`
	Observations string `json:"observations"`
}

// ResolveRequest records the final resolution.
type ResolveRequest struct {
	Outcome      models.RequestState `json:"outcome" binding:"required,oneof=APPROVED REJECTED"`
	Observations string              `json:"observations"`
}

// AnnulmentRequest opens the two-phase withdrawal flow.
type AnnulmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// OverrideStateRequest forces an arbitrary state, superuser only.
type OverrideStateRequest struct {
	State  models.RequestState `json:"state" binding:"required"`
	Reason string              `json:"reason" binding:"required"`
}

// RequestQuery mirrors the supported listing filters and sorts.
type RequestQuery struct {
	State       models.RequestState `form:"state"`
	AnnexType   models.AnnexType    `form:"annexType"`
	CenterText  string              `form:"center"`
	StudentText string              `form:"student"`
	SortBy      string              `form:"sortBy"`
	SortOrder   string              `form:"sortOrder"`
	Limit       int                 `form:"limit"`
	Offset      int                 `form:"offset"`
}

// PendingCountResponse is the role-specific notification counter.
type PendingCountResponse struct {
	Count int `json:"count"`
}
