package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/model"
)

// MemoryStore implements Store with in-process maps. It backs engine tests
// and the memory driver used for demos without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	treatments map[string]model.Treatment
	trials     map[string]model.Trial
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		treatments: make(map[string]model.Treatment),
		trials:     make(map[string]model.Trial),
	}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListTreatments(ctx context.Context) ([]model.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	treatments := make([]model.Treatment, 0, len(s.treatments))
	for _, t := range s.treatments {
		treatments = append(treatments, t)
	}
	sort.Slice(treatments, func(i, j int) bool {
		return treatments[i].GenericName < treatments[j].GenericName
	})
	return treatments, nil
}

func (s *MemoryStore) UpsertTreatment(ctx context.Context, treatment *model.Treatment) error {
	if treatment.GenericName == "" {
		return eris.New("memory: treatment generic name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.treatments[strings.ToLower(treatment.GenericName)] = *treatment
	return nil
}

func (s *MemoryStore) ListTrials(ctx context.Context) ([]model.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedTrialsLocked(), nil
}

func (s *MemoryStore) GetTrial(ctx context.Context, nctID string) (*model.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trial, ok := s.trials[strings.ToUpper(nctID)]
	if !ok {
		return nil, nil
	}
	return &trial, nil
}

func (s *MemoryStore) UpsertTrial(ctx context.Context, trial *model.Trial) error {
	if trial.NCTID == "" {
		return eris.New("memory: trial NCT ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials[strings.ToUpper(trial.NCTID)] = *trial
	return nil
}

func (s *MemoryStore) ListTrialsMissingEligibility(ctx context.Context, version string, limit int) ([]model.Trial, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []model.Trial
	for _, trial := range s.sortedTrialsLocked() {
		if trial.EligibilityCriteria == "" {
			continue
		}
		if trial.Eligibility != nil && trial.EligibilityVersion == version {
			continue
		}
		missing = append(missing, trial)
		if len(missing) == limit {
			break
		}
	}
	return missing, nil
}

func (s *MemoryStore) UpdateTrialEligibility(ctx context.Context, nctID string, elig *model.StructuredEligibility, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(nctID)
	trial, ok := s.trials[key]
	if !ok {
		return eris.Errorf("memory: trial %s not found", nctID)
	}

	now := time.Now().UTC()
	trial.Eligibility = elig
	trial.EligibilityVersion = version
	trial.EligibilityAt = &now
	s.trials[key] = trial
	return nil
}

func (s *MemoryStore) sortedTrialsLocked() []model.Trial {
	trials := make([]model.Trial, 0, len(s.trials))
	for _, t := range s.trials {
		trials = append(trials, t)
	}
	sort.Slice(trials, func(i, j int) bool {
		return trials[i].NCTID < trials[j].NCTID
	})
	return trials
}
