// Package model defines the domain types shared across the matching engine:
// patient and researcher profiles, the trial/treatment corpus entities, and
// the transient evaluation results.
package model

// CancerTypeNSCLC is the only cancer type the corpus currently covers.
const CancerTypeNSCLC = "NSCLC"

// Histology classifies NSCLC tumor tissue.
type Histology string

const (
	HistologyAdenocarcinoma Histology = "adenocarcinoma"
	HistologySquamous       Histology = "squamous"
	HistologyLargeCell      Histology = "large_cell"
	HistologyOther          Histology = "other"
)

// LineOfTherapy describes where the patient is in their treatment sequence.
type LineOfTherapy string

const (
	LineTreatmentNaive LineOfTherapy = "treatment_naive"
	LineFirst          LineOfTherapy = "1st"
	LineSecond         LineOfTherapy = "2nd"
	LineThirdPlus      LineOfTherapy = "3rd+"
)

// BrainMetStatus describes brain metastasis burden. "Has brain mets" alone is
// not enough for eligibility decisions; trials distinguish active from
// stable/treated disease.
type BrainMetStatus string

const (
	BrainMetsNone   BrainMetStatus = "none"
	BrainMetsStable BrainMetStatus = "stable"
	BrainMetsActive BrainMetStatus = "active"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PatientLocation is where the patient can be treated. Coordinates are
// optional; when absent, distance scoring falls back to state comparison.
type PatientLocation struct {
	City  string    `json:"city,omitempty"`
	State string    `json:"state,omitempty"`
	Coord *GeoPoint `json:"coord,omitempty"`
}

// PatientProfile is the structured clinical picture of one patient. Every
// field is independently nullable: unknown is a first-class value and is never
// conflated with a negative finding.
type PatientProfile struct {
	CancerType string `json:"cancer_type"`

	Histology Field[Histology] `json:"histology"`
	Stage     Field[string]    `json:"stage"`

	// Biomarkers maps marker name to reported values, e.g.
	// {"EGFR": ["L858R"]} or {"ALK": ["positive"]}. An absent marker is
	// untested, not negative; a negative finding is an explicit value such
	// as "negative" or "wild-type".
	Biomarkers map[string][]string `json:"biomarkers"`

	Age        Field[int] `json:"age"`
	ECOGStatus Field[int] `json:"ecog_status"`

	// PriorTreatments is unknown when the history was not reported, which
	// is distinct from a known-empty (treatment-naive) history.
	PriorTreatments Field[[]string]      `json:"prior_treatments"`
	LineOfTherapy   Field[LineOfTherapy] `json:"line_of_therapy"`

	BrainMetastases     Field[BrainMetStatus] `json:"brain_metastases"`
	PriorMalignancy     Field[bool]           `json:"prior_malignancy"`
	OrganFunctionIssues Field[bool]           `json:"organ_function_issues"`

	Location            *PatientLocation `json:"location,omitempty"`
	TravelDistanceMiles Field[float64]   `json:"travel_distance_miles"`
}

// NewPatientProfile returns a profile with the domain defaults applied.
func NewPatientProfile() PatientProfile {
	return PatientProfile{
		CancerType: CancerTypeNSCLC,
		Biomarkers: map[string][]string{},
	}
}
