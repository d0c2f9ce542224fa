package model

// ResearcherTrialProfile describes the trial a researcher is planning or
// running, used as the reference point for competitive analysis.
type ResearcherTrialProfile struct {
	// NCTID is set when the profile was loaded from an existing trial, so
	// the trial can be excluded from its own competitor set.
	NCTID string `json:"nct_id,omitempty"`
	Title string `json:"title,omitempty"`
	Phase string `json:"phase,omitempty"`

	TargetBiomarkers map[string][]string `json:"target_biomarkers"`
	TargetStages     []string            `json:"target_stages"`
	TargetHistology  []string            `json:"target_histology"`
	// TargetLocations lists US states the trial plans to recruit in.
	TargetLocations []string `json:"target_locations"`

	AgeRange           *AgeRange   `json:"age_range,omitempty"`
	ECOGMax            *int        `json:"ecog_max,omitempty"`
	TreatmentNaiveOnly Field[bool] `json:"treatment_naive_only"`
	PriorTreatmentsExcluded []string `json:"prior_treatments_excluded,omitempty"`
}

// NewResearcherTrialProfile returns a profile with collections initialized.
func NewResearcherTrialProfile() ResearcherTrialProfile {
	return ResearcherTrialProfile{
		TargetBiomarkers: map[string][]string{},
	}
}

// CompetitorMatch is one competing trial with its similarity breakdown. All
// sub-scores are in [0,1].
type CompetitorMatch struct {
	NCTID        string `json:"nct_id"`
	Title        string `json:"title,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Status       string `json:"status,omitempty"`
	Sponsor      string `json:"sponsor,omitempty"`
	BriefSummary string `json:"brief_summary,omitempty"`

	SimilarityScore   float64 `json:"similarity_score"`
	BiomarkerOverlap  float64 `json:"biomarker_overlap"`
	StageOverlap      float64 `json:"stage_overlap"`
	GeographicOverlap float64 `json:"geographic_overlap"`
	PhaseProximity    float64 `json:"phase_proximity"`

	OverlappingBiomarkers []string `json:"overlapping_biomarkers"`
	OverlappingStages     []string `json:"overlapping_stages"`
	OverlappingLocations  []string `json:"overlapping_locations"`

	// Locations is capped for display; RecruitingStates covers every site
	// so state-level aggregation is not biased by the cap.
	Locations        []TrialSite `json:"locations,omitempty"`
	RecruitingStates []string    `json:"recruiting_states,omitempty"`
	StudyURL         string      `json:"study_url,omitempty"`
}

// SponsorCount is a sponsor frequency entry.
type SponsorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StateCount is a recruiting-state frequency entry.
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// BiomarkerCount is a biomarker frequency entry.
type BiomarkerCount struct {
	Biomarker string `json:"biomarker"`
	Count     int    `json:"count"`
}

// MarketInsights aggregates the scored competitor set in a single pass:
// frequency tables, a phase histogram, and the mean similarity score.
type MarketInsights struct {
	TotalCompetingTrials int            `json:"total_competing_trials"`
	TopSponsors          []SponsorCount `json:"top_sponsors"`
	GeographicHotspots   []StateCount   `json:"geographic_hotspots"`
	PhaseDistribution    map[string]int `json:"phase_distribution"`
	CommonBiomarkers     []BiomarkerCount `json:"common_biomarkers"`
	AvgSimilarityScore   float64        `json:"avg_similarity_score"`
}

// CompetitorAnalysisResponse is the full answer to a competitor analysis
// request.
type CompetitorAnalysisResponse struct {
	Profile          ResearcherTrialProfile `json:"profile"`
	Competitors      []CompetitorMatch      `json:"competitors"`
	Insights         MarketInsights         `json:"insights"`
	TotalCompetitors int                    `json:"total_competitors"`
	ProcessingTimeMS int64                  `json:"processing_time_ms"`
}

// ParsedTrialProfile is the extraction-preview answer for the researcher path.
type ParsedTrialProfile struct {
	Profile    ResearcherTrialProfile `json:"profile"`
	Confidence float64                `json:"confidence"`
	Notes      []string               `json:"notes"`
}
