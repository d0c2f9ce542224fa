package store

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/model"
)

// encodeTrial serializes a trial for the data column. The structured
// eligibility triple lives in its own columns so backfill can update it
// without rewriting the document.
func encodeTrial(trial *model.Trial) ([]byte, error) {
	clone := *trial
	clone.Eligibility = nil
	clone.EligibilityVersion = ""
	clone.EligibilityAt = nil

	data, err := json.Marshal(&clone)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal trial %s", trial.NCTID)
	}
	return data, nil
}

// decodeTrial reassembles a trial from the data column and the eligibility
// columns read alongside it.
func decodeTrial(data []byte, elig []byte, version *string, extractedAt *time.Time) (*model.Trial, error) {
	var trial model.Trial
	if err := json.Unmarshal(data, &trial); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal trial")
	}

	if len(elig) > 0 {
		var structured model.StructuredEligibility
		if err := json.Unmarshal(elig, &structured); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal eligibility for %s", trial.NCTID)
		}
		trial.Eligibility = &structured
	}
	if version != nil {
		trial.EligibilityVersion = *version
	}
	trial.EligibilityAt = extractedAt

	return &trial, nil
}

func decodeTreatment(data []byte) (*model.Treatment, error) {
	var treatment model.Treatment
	if err := json.Unmarshal(data, &treatment); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal treatment")
	}
	return &treatment, nil
}
