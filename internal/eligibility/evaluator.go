package eligibility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trialscout/trialscout/internal/model"
)

// MinConfidence is the floor for evaluation confidence. A trial with zero
// specified constraints still reports this value alongside an uncertain
// verdict so downstream ranking never divides by or multiplies with zero.
const MinConfidence = 0.1

// lineOrdinal maps a line of therapy onto a count of completed lines for
// comparison against min/max line constraints.
var lineOrdinal = map[model.LineOfTherapy]int{
	model.LineTreatmentNaive: 0,
	model.LineFirst:          1,
	model.LineSecond:         2,
	model.LineThirdPlus:      3,
}

// Evaluate compares one patient against one trial's structured criteria and
// produces the tri-state result. It is a pure function: identical inputs
// always produce identical output, including the explanation string.
func Evaluate(patient *model.PatientProfile, elig *model.StructuredEligibility) model.EligibilityResult {
	if elig == nil || elig.ConstraintCount() == 0 {
		return model.EligibilityResult{
			Status:            model.StatusUncertain,
			Confidence:        MinConfidence,
			MatchingCriteria:  []string{},
			ExcludingCriteria: []string{},
			Explanation:       "Uncertain: no structured eligibility constraints available for evaluation.",
		}
	}

	checks := FieldChecks(patient, elig)
	return aggregate(checks)
}

// FieldChecks runs every specified constraint of the trial against the
// patient and returns one Check per constraint. Unspecified constraints are
// omitted entirely, so len(checks) equals the trial's constraint count. A
// trial with no structured extraction yields no checks.
func FieldChecks(patient *model.PatientProfile, elig *model.StructuredEligibility) []Check {
	if elig == nil {
		return nil
	}

	var checks []Check

	if elig.Age.Specified() {
		checks = append(checks, checkAge(patient.Age, elig.Age))
	}
	if elig.ECOG.Specified() {
		checks = append(checks, checkECOG(patient.ECOGStatus, elig.ECOG))
	}
	if elig.DiseaseStage.Specified() {
		checks = append(checks, checkStage(patient.Stage, elig.DiseaseStage))
	}
	if elig.Histology.Specified() {
		checks = append(checks, checkHistology(patient.Histology, elig.Histology))
	}
	if len(elig.Biomarkers.RequiredPositive) > 0 {
		checks = append(checks, checkRequiredPositive(patient.Biomarkers, elig.Biomarkers.RequiredPositive))
	}
	if len(elig.Biomarkers.RequiredNegative) > 0 {
		checks = append(checks, checkRequiredNegative(patient.Biomarkers, elig.Biomarkers.RequiredNegative))
	}
	if elig.Biomarkers.PDL1 != nil {
		checks = append(checks, checkPDL1(patient.Biomarkers, *elig.Biomarkers.PDL1))
	}
	if elig.PriorTreatments.Specified() {
		checks = append(checks, checkPriorTreatments(patient, elig.PriorTreatments))
	}
	if elig.BrainMetastases != nil {
		checks = append(checks, checkBrainMetastases(patient.BrainMetastases, *elig.BrainMetastases))
	}

	return checks
}

func checkAge(age model.Field[int], bounds model.AgeRange) Check {
	c := Check{Field: "age"}
	v, known := age.Get()
	if !known {
		c.Verdict = VerdictUnknown
		c.Details = []string{"Age not reported"}
		return c
	}
	if bounds.Min != nil && v < *bounds.Min {
		c.Verdict = VerdictMismatch
		c.Details = []string{fmt.Sprintf("Age %d below minimum %d", v, *bounds.Min)}
		return c
	}
	if bounds.Max != nil && v > *bounds.Max {
		c.Verdict = VerdictMismatch
		c.Details = []string{fmt.Sprintf("Age %d above maximum %d", v, *bounds.Max)}
		return c
	}
	c.Verdict = VerdictMatch
	c.Details = []string{fmt.Sprintf("Age %d within allowed range", v)}
	return c
}

func checkECOG(ecog model.Field[int], bounds model.ECOGRange) Check {
	c := Check{Field: "ecog"}
	v, known := ecog.Get()
	if !known {
		c.Verdict = VerdictUnknown
		c.Details = []string{"ECOG status not reported"}
		return c
	}
	if bounds.Max != nil && v > *bounds.Max {
		c.Verdict = VerdictMismatch
		c.Details = []string{fmt.Sprintf("ECOG %d exceeds maximum %d", v, *bounds.Max)}
		return c
	}
	if bounds.Min != nil && v < *bounds.Min {
		c.Verdict = VerdictMismatch
		c.Details = []string{fmt.Sprintf("ECOG %d below minimum %d", v, *bounds.Min)}
		return c
	}
	c.Verdict = VerdictMatch
	c.Details = []string{fmt.Sprintf("ECOG %d within allowed range", v)}
	return c
}

// listVerdict evaluates a free-string patient value against an allow/exclude
// list using the field's membership rule. Stage and histology text is noisy,
// so a present-but-unlisted value is a warning, not a hard mismatch.
func listVerdict(value string, req model.ListRequirement, member func(a, b string) bool) (Verdict, string) {
	for _, ex := range req.Excluded {
		if member(value, ex) {
			return VerdictMismatch, ex
		}
	}
	for _, al := range req.Allowed {
		if member(value, al) {
			return VerdictMatch, al
		}
	}
	if len(req.Allowed) > 0 {
		return VerdictWarning, ""
	}
	return VerdictMatch, ""
}

// looseMember treats containment in either direction as membership (e.g.
// "squamous" against "squamous cell carcinoma"). Suitable for histology and
// treatment names, not Roman-numeral stages.
func looseMember(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	return la == lb || strings.Contains(la, lb) || strings.Contains(lb, la)
}

// stageMember compares disease stages by Roman-numeral base and letter
// substage: "IIIB" is a member of "III", and "III" of "IIIB", but "IV" is
// never a member of "I". Values that do not parse as Roman-numeral stages
// ("recurrent", "extensive") fall back to loose containment.
func stageMember(a, b string) bool {
	baseA, subA, okA := splitStage(a)
	baseB, subB, okB := splitStage(b)
	if !okA || !okB {
		return looseMember(a, b)
	}
	if baseA != baseB {
		return false
	}
	return subA == "" || subB == "" || subA == subB
}

// splitStage parses "IIIB" or "stage iv" into the Roman base and letter
// substage. The base list is longest-first so "IV" is not read as "I".
func splitStage(s string) (base, substage string, ok bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimPrefix(v, "STAGE"))
	for _, r := range []string{"IV", "III", "II", "I"} {
		if rest, found := strings.CutPrefix(v, r); found {
			return r, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

func checkStage(stage model.Field[string], req model.ListRequirement) Check {
	c := Check{Field: "stage"}
	v, known := stage.Get()
	if !known || v == "" {
		c.Verdict = VerdictUnknown
		c.Details = []string{"Disease stage not reported"}
		return c
	}
	verdict, hit := listVerdict(v, req, stageMember)
	c.Verdict = verdict
	switch verdict {
	case VerdictMatch:
		c.Details = []string{fmt.Sprintf("Stage %s matches allowed stages", v)}
	case VerdictMismatch:
		c.Details = []string{fmt.Sprintf("Stage %s is excluded (%s)", v, hit)}
	default:
		c.Details = []string{fmt.Sprintf("Stage %s not listed in allowed stages", v)}
	}
	return c
}

func checkHistology(histology model.Field[model.Histology], req model.ListRequirement) Check {
	c := Check{Field: "histology"}
	v, known := histology.Get()
	if !known || v == "" {
		c.Verdict = VerdictUnknown
		c.Details = []string{"Histology not reported"}
		return c
	}
	verdict, hit := listVerdict(string(v), req, looseMember)
	c.Verdict = verdict
	switch verdict {
	case VerdictMatch:
		c.Details = []string{fmt.Sprintf("Histology %s matches allowed types", v)}
	case VerdictMismatch:
		c.Details = []string{fmt.Sprintf("Histology %s is excluded (%s)", v, hit)}
	default:
		c.Details = []string{fmt.Sprintf("Histology %s not listed in allowed types", v)}
	}
	return c
}

// checkRequiredPositive evaluates every required-positive biomarker. The
// per-marker outcomes combine pessimistically: any mismatch dominates, then
// any warning, then any unknown.
func checkRequiredPositive(biomarkers map[string][]string, required map[string][]string) Check {
	c := Check{Field: "biomarkers"}
	var worst Verdict = VerdictMatch

	for marker, allowedValues := range required {
		reported, tested := LookupMarker(biomarkers, marker)
		switch {
		case !tested:
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, fmt.Sprintf("%s status not reported", marker))

		case HasNegativeIndicator(reported):
			worst = escalate(worst, VerdictMismatch)
			c.Details = append(c.Details, fmt.Sprintf("%s negative but required positive", marker))

		case HasPositiveIndicator(allowedValues):
			// Generic requirement: any positive finding, generic or
			// mutation-specific, satisfies it.
			c.Details = append(c.Details, fmt.Sprintf("%s positive matches required positive", marker))

		default:
			// Mutation-specific requirement.
			shared := ValuesIntersect(reported, allowedValues)
			specific := SpecificValues(reported)
			switch {
			case len(shared) > 0:
				c.Details = append(c.Details, fmt.Sprintf("%s %s matches required positive", marker, strings.Join(shared, ", ")))
			case len(specific) == 0 && HasPositiveIndicator(reported):
				// Generic positive against a specific requirement:
				// cannot rule out, cannot confirm.
				worst = escalate(worst, VerdictWarning)
				c.Details = append(c.Details, fmt.Sprintf("%s positive but specific alteration (%s) unconfirmed", marker, strings.Join(allowedValues, ", ")))
			default:
				worst = escalate(worst, VerdictMismatch)
				c.Details = append(c.Details, fmt.Sprintf("%s %s does not match required %s", marker, strings.Join(reported, ", "), strings.Join(allowedValues, ", ")))
			}
		}
	}

	c.Verdict = worst
	return c
}

func checkRequiredNegative(biomarkers map[string][]string, required []string) Check {
	c := Check{Field: "biomarkers_negative"}
	var worst Verdict = VerdictMatch

	for _, marker := range required {
		reported, tested := LookupMarker(biomarkers, marker)
		switch {
		case !tested:
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, fmt.Sprintf("%s status not reported", marker))
		case HasNegativeIndicator(reported):
			c.Details = append(c.Details, fmt.Sprintf("%s negative as required", marker))
		default:
			// Any positive or mutation-specific finding conflicts.
			worst = escalate(worst, VerdictMismatch)
			c.Details = append(c.Details, fmt.Sprintf("%s positive conflicts with required negative", marker))
		}
	}

	c.Verdict = worst
	return c
}

// checkPDL1 evaluates a PD-L1 expression requirement against the patient's
// reported PD-L1 values. A numeric TPS value ("50%", "TPS 50") is compared
// against the bounds; a bare positive/negative finding can only rule the
// patient out against a nonzero minimum, never confirm a threshold.
func checkPDL1(biomarkers map[string][]string, req model.PDL1Requirement) Check {
	c := Check{Field: "pdl1"}

	reported, tested := LookupMarker(biomarkers, "PD-L1")
	if !tested {
		reported, tested = LookupMarker(biomarkers, "PDL1")
	}
	if !tested {
		c.Verdict = VerdictUnknown
		c.Details = []string{"PD-L1 expression not reported"}
		return c
	}

	if tps, ok := parseTPS(reported); ok {
		switch {
		case req.MinTPS != nil && tps < *req.MinTPS:
			c.Verdict = VerdictMismatch
			c.Details = []string{fmt.Sprintf("PD-L1 TPS %.0f%% below required %.0f%%", tps, *req.MinTPS)}
		case req.MaxTPS != nil && tps > *req.MaxTPS:
			c.Verdict = VerdictMismatch
			c.Details = []string{fmt.Sprintf("PD-L1 TPS %.0f%% above allowed %.0f%%", tps, *req.MaxTPS)}
		default:
			c.Verdict = VerdictMatch
			c.Details = []string{fmt.Sprintf("PD-L1 TPS %.0f%% within required range", tps)}
		}
		return c
	}

	switch {
	case HasNegativeIndicator(reported) && req.MinTPS != nil && *req.MinTPS > 0:
		c.Verdict = VerdictMismatch
		c.Details = []string{"PD-L1 negative but expression required"}
	case HasPositiveIndicator(reported) && (req.MinTPS != nil || req.Level != ""):
		c.Verdict = VerdictWarning
		c.Details = []string{"PD-L1 positive but TPS value unconfirmed"}
	default:
		c.Verdict = VerdictUnknown
		c.Details = []string{"PD-L1 expression level not quantified"}
	}
	return c
}

// parseTPS pulls a numeric tumor proportion score out of reported values
// such as "50%", "TPS 50" or "55".
func parseTPS(values []string) (float64, bool) {
	for _, v := range values {
		s := strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(v), "%"))
		s = strings.TrimSpace(strings.TrimPrefix(s, "TPS"))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func checkPriorTreatments(patient *model.PatientProfile, rules model.PriorTreatmentRules) Check {
	c := Check{Field: "prior_treatments"}
	var worst Verdict = VerdictMatch

	history, historyKnown := patient.PriorTreatments.Get()

	if rules.TreatmentNaiveRequired {
		switch {
		case !historyKnown:
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, "Treatment history not reported")
		case len(history) > 0:
			worst = escalate(worst, VerdictMismatch)
			c.Details = append(c.Details, "Prior treatment conflicts with treatment-naive requirement")
		default:
			c.Details = append(c.Details, "Treatment-naive as required")
		}
	}

	if len(rules.Excluded) > 0 {
		if !historyKnown {
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, "Treatment history not reported for excluded-treatment check")
		} else {
			for _, ex := range rules.Excluded {
				for _, prior := range history {
					if looseMember(prior, ex) {
						worst = escalate(worst, VerdictMismatch)
						c.Details = append(c.Details, fmt.Sprintf("Prior %s is excluded", prior))
					}
				}
			}
		}
	}

	if len(rules.Required) > 0 {
		if !historyKnown {
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, "Treatment history not reported for required-treatment check")
		} else {
			for _, req := range rules.Required {
				var found bool
				for _, prior := range history {
					if looseMember(prior, req) {
						found = true
						break
					}
				}
				if found {
					c.Details = append(c.Details, fmt.Sprintf("Required prior %s present", req))
				} else {
					worst = escalate(worst, VerdictMismatch)
					c.Details = append(c.Details, fmt.Sprintf("Required prior %s not found in history", req))
				}
			}
		}
	}

	if rules.MaxLines != nil || rules.MinLines != nil {
		line, lineKnown := patient.LineOfTherapy.Get()
		if !lineKnown {
			worst = escalate(worst, VerdictUnknown)
			c.Details = append(c.Details, "Line of therapy not reported")
		} else {
			lines := lineOrdinal[line]
			switch {
			case rules.MaxLines != nil && lines > *rules.MaxLines:
				worst = escalate(worst, VerdictMismatch)
				c.Details = append(c.Details, fmt.Sprintf("%d prior lines exceeds maximum %d", lines, *rules.MaxLines))
			case rules.MinLines != nil && lines < *rules.MinLines:
				worst = escalate(worst, VerdictMismatch)
				c.Details = append(c.Details, fmt.Sprintf("%d prior lines below minimum %d", lines, *rules.MinLines))
			default:
				c.Details = append(c.Details, fmt.Sprintf("Line of therapy (%s) within allowed lines", line))
			}
		}
	}

	c.Verdict = worst
	return c
}

// checkBrainMetastases applies the brain metastasis rule. Only active disease
// against an outright disallow (or a controlled-only requirement) is a hard
// mismatch; stable disease against a disallow is soft because "allowed:false"
// extractions from criteria text are noisy.
func checkBrainMetastases(status model.Field[model.BrainMetStatus], rule model.BrainMetastasesRule) Check {
	c := Check{Field: "brain_metastases"}
	v, known := status.Get()
	if !known {
		c.Verdict = VerdictUnknown
		c.Details = []string{"Brain metastasis status not reported"}
		return c
	}

	switch v {
	case model.BrainMetsNone:
		c.Verdict = VerdictMatch
		c.Details = []string{"No brain metastases"}
	case model.BrainMetsStable:
		if !rule.Allowed {
			c.Verdict = VerdictWarning
			c.Details = []string{"Stable brain metastases but trial may disallow brain metastases"}
		} else {
			c.Verdict = VerdictMatch
			c.Details = []string{"Stable brain metastases permitted"}
		}
	case model.BrainMetsActive:
		switch {
		case !rule.Allowed:
			c.Verdict = VerdictMismatch
			c.Details = []string{"Active brain metastases not permitted"}
		case rule.ControlledOnly && !rule.UntreatedAllowed:
			c.Verdict = VerdictMismatch
			c.Details = []string{"Only controlled brain metastases permitted"}
		default:
			c.Verdict = VerdictMatch
			c.Details = []string{"Brain metastases permitted"}
		}
	default:
		c.Verdict = VerdictUnknown
		c.Details = []string{"Brain metastasis status not recognized"}
	}
	return c
}

// escalate returns the more severe of two verdicts. Severity order:
// mismatch > warning > unknown > match.
func escalate(current, next Verdict) Verdict {
	rank := map[Verdict]int{
		VerdictMatch:    0,
		VerdictUnknown:  1,
		VerdictWarning:  2,
		VerdictMismatch: 3,
	}
	if rank[next] > rank[current] {
		return next
	}
	return current
}

// aggregate folds field checks into the final result. Any mismatch is
// ineligible. Eligible requires every check to be an outright match, so an
// unknown patient field can never count as satisfying a constraint.
// Everything in between is uncertain.
func aggregate(checks []Check) model.EligibilityResult {
	matching := []string{}
	excluding := []string{}

	var matches, mismatches, warnings, evaluable int

	for _, c := range checks {
		if c.Verdict != VerdictUnknown {
			evaluable++
		}
		switch c.Verdict {
		case VerdictMatch:
			matches++
			matching = append(matching, c.Details...)
		case VerdictMismatch:
			mismatches++
			excluding = append(excluding, c.Details...)
		case VerdictWarning:
			warnings++
			excluding = append(excluding, c.Details...)
		}
	}

	confidence := float64(evaluable) / float64(len(checks))
	if confidence < MinConfidence {
		confidence = MinConfidence
	}

	status := model.StatusUncertain
	switch {
	case mismatches > 0:
		status = model.StatusIneligible
	case warnings == 0 && matches == len(checks):
		status = model.StatusEligible
	}

	return model.EligibilityResult{
		Status:            status,
		Confidence:        confidence,
		MatchingCriteria:  matching,
		ExcludingCriteria: excluding,
		Explanation:       explain(status, confidence, len(checks), evaluable, matching, excluding),
	}
}

// explain assembles the deterministic summary sentence from the criteria
// lists. No free-form generation: same inputs, same sentence.
func explain(status model.EligibilityStatus, confidence float64, total, evaluable int, matching, excluding []string) string {
	switch status {
	case model.StatusIneligible:
		return fmt.Sprintf("Ineligible: %s.", strings.Join(excluding, "; "))
	case model.StatusEligible:
		return fmt.Sprintf("Eligible: %d of %d criteria matched (%s).", evaluable, total, strings.Join(matching, "; "))
	default:
		var parts []string
		parts = append(parts, fmt.Sprintf("Uncertain: %d of %d criteria evaluable", evaluable, total))
		if len(excluding) > 0 {
			parts = append(parts, "concerns: "+strings.Join(excluding, "; "))
		}
		if len(matching) > 0 {
			parts = append(parts, "supporting: "+strings.Join(matching, "; "))
		}
		return strings.Join(parts, "; ") + "."
	}
}
