package model

// EligibilityStatus is the tri-state verdict of one patient/trial evaluation.
type EligibilityStatus string

const (
	StatusEligible   EligibilityStatus = "eligible"
	StatusIneligible EligibilityStatus = "ineligible"
	StatusUncertain  EligibilityStatus = "uncertain"
)

// EligibilityResult is the outcome of evaluating one patient against one
// trial's structured criteria. It is transient: computed per request, never
// persisted. The explanation is template-assembled from the criteria lists,
// deterministic and reproducible.
type EligibilityResult struct {
	Status            EligibilityStatus `json:"status"`
	Confidence        float64           `json:"confidence"`
	MatchingCriteria  []string          `json:"matching_criteria"`
	ExcludingCriteria []string          `json:"excluding_criteria"`
	Explanation       string            `json:"explanation"`
}

// TreatmentMatch is one scored treatment in a match response.
type TreatmentMatch struct {
	Treatment
	MatchScore  float64 `json:"match_score"`
	MatchReason string  `json:"match_reason"`
}

// TrialMatch is one ranked trial in a match response.
type TrialMatch struct {
	NCTID        string `json:"nct_id"`
	Title        string `json:"title,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Status       string `json:"status,omitempty"`
	Sponsor      string `json:"sponsor,omitempty"`
	BriefSummary string `json:"brief_summary,omitempty"`

	BiomarkerRequirements map[string][]string `json:"biomarker_requirements,omitempty"`

	Eligibility    EligibilityResult `json:"eligibility"`
	CompositeScore float64           `json:"composite_score"`

	// Locations is trimmed to sites near the patient, capped at 5.
	Locations []TrialSite `json:"locations,omitempty"`
	StudyURL  string      `json:"study_url,omitempty"`
}

// MatchResponse is the full answer to a patient match request.
type MatchResponse struct {
	Profile          PatientProfile   `json:"profile"`
	Treatments       []TreatmentMatch `json:"treatments"`
	Trials           []TrialMatch     `json:"trials"`
	TotalTreatments  int              `json:"total_treatments"`
	TotalTrials      int              `json:"total_trials"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
}

// ParsedPatient is the extraction-preview answer: the structured profile plus
// the extractor's own confidence and anything it could not place.
type ParsedPatient struct {
	Profile    PatientProfile `json:"profile"`
	Confidence float64        `json:"confidence"`
	Notes      []string       `json:"notes"`
}
