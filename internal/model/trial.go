package model

import (
	"strings"
	"time"
)

// Trial statuses considered open for the purposes of matching and
// competitive analysis. Registry exports vary in casing, so comparisons are
// case-insensitive.
const (
	StatusRecruiting           = "RECRUITING"
	StatusActiveNotRecruiting  = "ACTIVE_NOT_RECRUITING"
	StatusEnrollingByInvite    = "ENROLLING_BY_INVITATION"
)

// Relevance categories assigned at ingestion time. Anything tagged unrelated
// is excluded from ranking before evaluation.
const (
	RelevanceNSCLCSpecific = "nsclc_specific"
	RelevanceNSCLCPrimary  = "nsclc_primary"
	RelevanceMultiCancer   = "multi_cancer"
	RelevanceSolidTumor    = "solid_tumor"
	RelevanceUnrelated     = "unrelated"
)

// TrialSite is one recruiting location of a trial. Coordinates are optional.
type TrialSite struct {
	Facility string   `json:"facility,omitempty"`
	City     string   `json:"city,omitempty"`
	State    string   `json:"state,omitempty"`
	Country  string   `json:"country,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// Trial is one clinical trial from the read-only catalog corpus.
type Trial struct {
	ID           int64    `json:"id"`
	NCTID        string   `json:"nct_id"`
	Title        string   `json:"title,omitempty"`
	BriefSummary string   `json:"brief_summary,omitempty"`
	Phase        string   `json:"phase,omitempty"`
	Status       string   `json:"status,omitempty"`
	Sponsor      string   `json:"sponsor,omitempty"`
	Conditions   []string `json:"conditions,omitempty"`

	// EligibilityCriteria is the registry's raw criteria text; Eligibility
	// is the structured extraction of it, when one has been run.
	EligibilityCriteria string                 `json:"eligibility_criteria,omitempty"`
	Eligibility         *StructuredEligibility `json:"structured_eligibility,omitempty"`
	EligibilityVersion  string                 `json:"eligibility_extraction_version,omitempty"`
	EligibilityAt       *time.Time             `json:"eligibility_extracted_at,omitempty"`

	// BiomarkerRequirements is the ingestion-time biomarker summary, kept
	// alongside the structured extraction because competitor analysis uses
	// whichever is present.
	BiomarkerRequirements map[string][]string `json:"biomarker_requirements,omitempty"`

	Relevance      string   `json:"nsclc_relevance,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`

	PrimaryCompletionDate *time.Time  `json:"primary_completion_date,omitempty"`
	Locations             []TrialSite `json:"locations,omitempty"`
	StudyURL              string      `json:"study_url,omitempty"`
}

// Open reports whether the trial is in a status that accepts or may accept
// patients.
func (t *Trial) Open() bool {
	return statusEquals(t.Status, StatusRecruiting) ||
		statusEquals(t.Status, StatusActiveNotRecruiting) ||
		statusEquals(t.Status, StatusEnrollingByInvite)
}

// Recruiting reports whether the trial is actively recruiting.
func (t *Trial) Recruiting() bool {
	return statusEquals(t.Status, StatusRecruiting)
}

// RecruitingStates returns the deduplicated set of states the trial recruits
// in, preserving first-seen order.
func (t *Trial) RecruitingStates() []string {
	seen := make(map[string]bool, len(t.Locations))
	var states []string
	for _, loc := range t.Locations {
		if loc.State == "" || seen[loc.State] {
			continue
		}
		seen[loc.State] = true
		states = append(states, loc.State)
	}
	return states
}

func statusEquals(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Treatment is one FDA-approved therapy from the catalog corpus.
type Treatment struct {
	ID                  int64      `json:"id"`
	GenericName         string     `json:"generic_name"`
	BrandNames          []string   `json:"brand_names,omitempty"`
	DrugClass           string     `json:"drug_class,omitempty"`
	MechanismOfAction   string     `json:"mechanism_of_action,omitempty"`
	FDAApprovalStatus   string     `json:"fda_approval_status,omitempty"`
	FDAApprovalDate     *time.Time `json:"fda_approval_date,omitempty"`
	ApprovedIndications []string   `json:"approved_indications,omitempty"`

	// BiomarkerRequirements maps marker name to required values; empty for
	// broadly applicable therapies without a companion diagnostic.
	BiomarkerRequirements map[string][]string `json:"biomarker_requirements,omitempty"`

	CommonSideEffects []string `json:"common_side_effects,omitempty"`
	Manufacturer      string   `json:"manufacturer,omitempty"`
}
