package model

// AgeRange bounds patient age in years. A nil bound is unspecified; when both
// bounds are nil the age constraint is not evaluable.
type AgeRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// Specified reports whether at least one bound is present.
func (r AgeRange) Specified() bool { return r.Min != nil || r.Max != nil }

// ECOGRange bounds ECOG performance status (0-4).
type ECOGRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// Specified reports whether at least one bound is present.
func (r ECOGRange) Specified() bool { return r.Min != nil || r.Max != nil }

// ListRequirement is a generic allow/deny constraint over string values.
type ListRequirement struct {
	Allowed  []string `json:"allowed"`
	Excluded []string `json:"excluded"`
}

// Specified reports whether the requirement constrains anything.
func (r ListRequirement) Specified() bool {
	return len(r.Allowed) > 0 || len(r.Excluded) > 0
}

// PDL1Requirement captures PD-L1 expression criteria, either as a TPS bound
// or a coarse level ("high", "low", "any").
type PDL1Requirement struct {
	MinTPS *float64 `json:"min_tps,omitempty"`
	MaxTPS *float64 `json:"max_tps,omitempty"`
	Level  string   `json:"level,omitempty"`
}

// BiomarkerRules holds biomarker eligibility criteria.
type BiomarkerRules struct {
	// RequiredPositive maps marker name to the allowed mutation set. A
	// generic entry such as ["positive"] accepts any positive finding; a
	// specific set such as ["L858R", "exon19del"] requires one of those.
	RequiredPositive map[string][]string `json:"required_positive"`
	// RequiredNegative lists markers that must be negative/wild-type.
	RequiredNegative []string         `json:"required_negative"`
	PDL1             *PDL1Requirement `json:"pdl1_expression,omitempty"`
}

// Specified reports whether any biomarker constraint exists.
func (r BiomarkerRules) Specified() bool {
	return len(r.RequiredPositive) > 0 || len(r.RequiredNegative) > 0 || r.PDL1 != nil
}

// PriorTreatmentRules holds treatment-history criteria.
type PriorTreatmentRules struct {
	Required               []string `json:"required"`
	Excluded               []string `json:"excluded"`
	MaxLines               *int     `json:"max_lines"`
	MinLines               *int     `json:"min_lines"`
	TreatmentNaiveRequired bool     `json:"treatment_naive_required"`
}

// Specified reports whether any treatment-history constraint exists.
func (r PriorTreatmentRules) Specified() bool {
	return len(r.Required) > 0 || len(r.Excluded) > 0 ||
		r.MaxLines != nil || r.MinLines != nil || r.TreatmentNaiveRequired
}

// BrainMetastasesRule holds brain metastasis criteria. A nil rule on the
// trial means the criteria text said nothing, which is not evaluable.
type BrainMetastasesRule struct {
	Allowed          bool `json:"allowed"`
	ControlledOnly   bool `json:"controlled_only"`
	UntreatedAllowed bool `json:"untreated_allowed"`
}

// OrganFunctionRules holds organ function / lab value criteria.
type OrganFunctionRules struct {
	RenalExclusion   bool     `json:"renal_exclusion"`
	HepaticExclusion bool     `json:"hepatic_exclusion"`
	CreatinineMax    *float64 `json:"creatinine_max,omitempty"`
	BilirubinMax     *float64 `json:"bilirubin_max,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// PriorMalignancyRule holds prior-malignancy exclusion criteria.
type PriorMalignancyRule struct {
	Excluded      bool     `json:"excluded"`
	YearsLookback *int     `json:"years_lookback,omitempty"`
	Exceptions    []string `json:"exceptions,omitempty"`
}

// WashoutRules holds minimum elapsed days since each prior treatment modality.
type WashoutRules struct {
	MinDaysSinceChemo         *int `json:"min_days_since_chemo,omitempty"`
	MinDaysSinceRadiation     *int `json:"min_days_since_radiation,omitempty"`
	MinDaysSinceSurgery       *int `json:"min_days_since_surgery,omitempty"`
	MinDaysSinceImmunotherapy *int `json:"min_days_since_immunotherapy,omitempty"`
	GeneralMinDays            *int `json:"general_min_days,omitempty"`
}

// StructuredEligibility is the machine-readable form of a trial's entry
// criteria, extracted from the registry's free text. The invariant throughout:
// an absent constraint means "not evaluable", never "satisfied".
type StructuredEligibility struct {
	Age  AgeRange  `json:"age"`
	ECOG ECOGRange `json:"ecog"`

	DiseaseStage ListRequirement `json:"disease_stage"`
	Histology    ListRequirement `json:"histology"`

	Biomarkers      BiomarkerRules      `json:"biomarkers"`
	PriorTreatments PriorTreatmentRules `json:"prior_treatments"`

	BrainMetastases *BrainMetastasesRule `json:"brain_metastases,omitempty"`
	OrganFunction   *OrganFunctionRules  `json:"organ_function,omitempty"`
	PriorMalignancy *PriorMalignancyRule `json:"prior_malignancy,omitempty"`
	Washout         *WashoutRules        `json:"washout,omitempty"`

	CommonExclusions []string `json:"common_exclusions"`

	// ExtractionConfidence is how sure the extraction pass was of this
	// parse, in [0,1]. ExtractionNotes carries anything ambiguous the
	// extraction could not place, so no finding is silently dropped.
	ExtractionConfidence float64  `json:"extraction_confidence"`
	ExtractionNotes      []string `json:"extraction_notes"`
}

// ConstraintCount returns how many evaluable constraints the trial specifies.
// It is the denominator of the evaluation confidence score.
func (e *StructuredEligibility) ConstraintCount() int {
	var n int
	if e.Age.Specified() {
		n++
	}
	if e.ECOG.Specified() {
		n++
	}
	if e.DiseaseStage.Specified() {
		n++
	}
	if e.Histology.Specified() {
		n++
	}
	if len(e.Biomarkers.RequiredPositive) > 0 {
		n++
	}
	if len(e.Biomarkers.RequiredNegative) > 0 {
		n++
	}
	if e.Biomarkers.PDL1 != nil {
		n++
	}
	if e.PriorTreatments.Specified() {
		n++
	}
	if e.BrainMetastases != nil {
		n++
	}
	return n
}
