// Package eligibility implements the deterministic rule evaluator that
// compares a patient profile against a trial's structured entry criteria.
package eligibility

// Verdict is the outcome of evaluating a single criteria field.
type Verdict string

const (
	// VerdictMatch means the patient satisfies the constraint.
	VerdictMatch Verdict = "match"
	// VerdictMismatch means the patient clearly violates the constraint.
	VerdictMismatch Verdict = "mismatch"
	// VerdictWarning is a soft signal: the patient value does not line up
	// with the constraint but the underlying text is too noisy to call a
	// hard exclusion (stage/histology strings, generic-positive biomarkers
	// against mutation-specific requirements).
	VerdictWarning Verdict = "warning"
	// VerdictUnknown means the constraint could not be evaluated because
	// one side of the comparison is missing. Never treated as a pass.
	VerdictUnknown Verdict = "unknown"
)

// Check is the evaluated outcome of one specified constraint. Details are
// human-readable, one per finding, and feed the result's criteria lists.
type Check struct {
	Field   string
	Verdict Verdict
	Details []string
}
