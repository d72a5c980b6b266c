package service

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rayuela-fp/feoe-api/internal/models"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
)

// MotivesTypeI lists the accepted motives of a Type I request. MotiveOther
// requires a free-text justification.
var MotivesTypeI = []string{
	"Enfermedad, accidente o causas sobrevenidas",
	"Insuficiencia de plazas formativas en el entorno laboral-productivo del centro docente",
	"Movilidad",
	"Realización en sector con funcionamiento productivo incompatible con la fragmentación",
	MotiveOther,
}

// MotiveOther is the catch-all motive requiring explicit justification.
const MotiveOther = "Otros"

// Extraordinary conditions accepted by Type VIII-A. Type VIII-B is pinned to
// ConditionJuly and always requires justification.
var ExtraConditions = []string{
	"En días no lectivos",
	"En periodos vacacionales",
	"En horario nocturno",
	ConditionOther,
}

const (
	ConditionOther = "Otros"
	ConditionJuly  = "Mes de Julio"
)

var agreementNumberPattern = regexp.MustCompile(`^\d{8}-.+$`)

// Validator checks per-annex-type completeness rules before a request leaves
// DRAFT or is amended. Failures identify the offending field and leave the
// record untouched.
type Validator struct {
	closedMonth time.Month
}

// NewValidator constructs a validator. closedMonth is the administratively
// closed month in which training periods may not start or end.
func NewValidator(closedMonth time.Month) *Validator {
	if closedMonth < time.January || closedMonth > time.December {
		closedMonth = time.August
	}
	return &Validator{closedMonth: closedMonth}
}

// Validate runs the rule set of the request's annex type.
func (v *Validator) Validate(req *models.Request) error {
	if !req.AnnexType.Valid() {
		return appErrors.Validation("annexType", "unknown annex type")
	}
	switch req.AnnexType {
	case models.AnnexTypeI:
		return v.validateTypeI(req)
	case models.AnnexTypeII:
		return v.validateTypeII(req)
	case models.AnnexTypeIVA:
		return v.validateTypeIVA(req)
	case models.AnnexTypeIVB:
		return v.validateTypeIVB(req)
	case models.AnnexTypeV:
		return v.validateTypeV(req)
	case models.AnnexTypeVIIIA:
		return v.validateTypeVIIIA(req)
	case models.AnnexTypeVIIIB:
		return v.validateTypeVIIIB(req)
	case models.AnnexTypeXIII:
		return v.validateTypeXIII(req)
	}
	return nil
}

func (v *Validator) validateTypeI(req *models.Request) error {
	if req.Motive == "" {
		return appErrors.Validation("motive", "a motive is required")
	}
	if req.Motive == MotiveOther && req.MotiveOther == "" {
		return appErrors.Validation("motiveOther", "selecting 'Otros' requires a written motive")
	}
	if len(req.Documents) == 0 {
		return appErrors.Validation("documents", "supporting documentation is required")
	}
	return nil
}

func (v *Validator) validateTypeII(req *models.Request) error {
	if err := v.validatePeriod(req.StartDate, req.EndDate); err != nil {
		return err
	}
	if !req.Documents.HasTag(models.DocumentTagPlan) {
		return appErrors.Validation("documents", "an individual training plan document is required")
	}
	if req.AgreementNumber == "" {
		return appErrors.Validation("agreementNumber", "an agreement reference is required")
	}
	return nil
}

func (v *Validator) validateTypeIVA(req *models.Request) error {
	if !agreementNumberPattern.MatchString(req.AgreementNumber) {
		return appErrors.Validation("agreementNumber", "agreement number must match NNNNNNNN-suffix")
	}
	if req.PublicBody == "" {
		return appErrors.Validation("publicBody", "the public body is required")
	}
	if !req.Documents.HasTag(models.DocumentTagAgreement) {
		return appErrors.Validation("documents", "the signed agreement document is required")
	}
	return nil
}

func (v *Validator) validateTypeIVB(req *models.Request) error {
	if req.DestinationTutor == "" {
		return appErrors.Validation("destinationTutor", "the destination tutor is required")
	}
	if req.DestinationCenterCode == "" {
		return appErrors.Validation("destinationCenterCode", "a destination center is required")
	}
	return nil
}

func (v *Validator) validateTypeV(req *models.Request) error {
	if req.DualCourse == "" {
		return appErrors.Validation("dualCourse", "a course or cycle is required")
	}
	return nil
}

func (v *Validator) validateTypeVIIIA(req *models.Request) error {
	if !containsString(ExtraConditions, req.ExtraCondition) {
		return appErrors.Validation("extraCondition", "an extraordinary condition must be selected")
	}
	if req.ExtraCondition == ConditionOther && req.ExtraJustification == "" {
		return appErrors.Validation("extraJustification", "selecting 'Otros' requires a justification")
	}
	if err := v.validateCompany(req); err != nil {
		return err
	}
	if req.AgreementNumber == "" {
		return appErrors.Validation("agreementNumber", "an agreement reference is required")
	}
	return nil
}

func (v *Validator) validateTypeVIIIB(req *models.Request) error {
	if req.ExtraCondition != ConditionJuly {
		return appErrors.Validation("extraCondition", fmt.Sprintf("condition is fixed to %q", ConditionJuly))
	}
	if req.ExtraJustification == "" {
		return appErrors.Validation("extraJustification", "a justification is always required")
	}
	if err := v.validateCompany(req); err != nil {
		return err
	}
	if req.AgreementNumber == "" {
		return appErrors.Validation("agreementNumber", "an agreement reference is required")
	}
	return nil
}

func (v *Validator) validateTypeXIII(req *models.Request) error {
	if err := v.validatePeriod(req.StartDate, req.EndDate); err != nil {
		return err
	}
	if req.NeedsJustification == "" {
		return appErrors.Validation("needsJustification", "a justification of the adaptation is required")
	}
	return nil
}

func (v *Validator) validateCompany(req *models.Request) error {
	if req.CompanyName == "" {
		return appErrors.Validation("companyName", "the company name is required")
	}
	if req.CompanyLocality == "" {
		return appErrors.Validation("companyLocality", "the company locality is required")
	}
	if req.CompanyProvince == "" {
		return appErrors.Validation("companyProvince", "the company province is required")
	}
	if req.CompanyProvince == models.ProvinceAbroad && req.CompanyForeignAddress == "" {
		return appErrors.Validation("companyForeignAddress", "a full address is required for placements abroad")
	}
	if req.CompanyTutor == "" {
		return appErrors.Validation("companyTutor", "the company tutor is required")
	}
	return nil
}

func (v *Validator) validatePeriod(start, end string) error {
	startDate, err := parseDate(start)
	if err != nil {
		return appErrors.Validation("startDate", "a valid start date is required")
	}
	endDate, err := parseDate(end)
	if err != nil {
		return appErrors.Validation("endDate", "a valid end date is required")
	}
	if startDate.After(endDate) {
		return appErrors.Validation("startDate", "the start date cannot be after the end date")
	}
	if startDate.Month() == v.closedMonth {
		return appErrors.Validation("startDate", "the period cannot start in the closed month")
	}
	if endDate.Month() == v.closedMonth {
		return appErrors.Validation("endDate", "the period cannot end in the closed month")
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
