package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/competitor"
	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/engine"
	"github.com/trialscout/trialscout/internal/matcher"
	"github.com/trialscout/trialscout/internal/model"
	"github.com/trialscout/trialscout/internal/store"
)

func intPtr(v int) *int { return &v }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertTreatment(ctx, &model.Treatment{
		GenericName:           "osimertinib",
		BiomarkerRequirements: map[string][]string{"EGFR": {"L858R"}},
	}))
	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{
		NCTID:     "NCT10000001",
		Title:     "Osimertinib in EGFR-mutant NSCLC",
		Phase:     "Phase 3",
		Status:    model.StatusRecruiting,
		Relevance: model.RelevanceNSCLCSpecific,
		Eligibility: &model.StructuredEligibility{
			ECOG: model.ECOGRange{Max: intPtr(2)},
			Biomarkers: model.BiomarkerRules{
				RequiredPositive: map[string][]string{"EGFR": {"L858R"}},
			},
		},
	}))
	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{
		NCTID:     "NCT10000002",
		Title:     "Pembrolizumab maintenance",
		Phase:     "Phase 3",
		Status:    model.StatusRecruiting,
		Relevance: model.RelevanceNSCLCPrimary,
	}))

	e := engine.New(s, nil, matcher.DefaultMatcherConfig(), competitor.DefaultSimilarityConfig())
	return NewRouter(e, config.ServerConfig{AllowedOrigins: []string{"*"}})
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMatchStructured(t *testing.T) {
	router := newTestRouter(t)

	profile := model.NewPatientProfile()
	profile.Stage = model.Known("IV")
	profile.Biomarkers = map[string][]string{"EGFR": {"L858R"}}
	profile.ECOGStatus = model.Known(1)

	rec := postJSON(t, router, "/match/structured", map[string]any{"profile": profile})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Trials)
	assert.Equal(t, "NCT10000001", resp.Trials[0].NCTID)
	require.NotEmpty(t, resp.Treatments)
	assert.Equal(t, "osimertinib", resp.Treatments[0].GenericName)
}

func TestMatchStructuredRejectsOtherCancerTypes(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/match/structured", map[string]any{
		"profile": map[string]any{"cancer_type": "SCLC"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}

func TestMatchFreeTextWithoutBackend(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/match", map[string]any{
		"description": "62 year old with stage IV adenocarcinoma, EGFR L858R",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "structured form")
}

func TestMalformedJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/match/structured", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed_json")
}

func TestCompetitorAnalyze(t *testing.T) {
	router := newTestRouter(t)

	profile := model.NewResearcherTrialProfile()
	profile.Phase = "Phase 3"
	profile.TargetBiomarkers = map[string][]string{"EGFR": {"L858R"}}

	rec := postJSON(t, router, "/competitor/analyze", map[string]any{"profile": profile})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.CompetitorAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Competitors)
	assert.Equal(t, "NCT10000001", resp.Competitors[0].NCTID)
}

func TestCompetitorAnalyzeByID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/competitor/analyze/NCT10000001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.CompetitorAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NCT10000001", resp.Profile.NCTID)
	for _, c := range resp.Competitors {
		assert.NotEqual(t, "NCT10000001", c.NCTID)
	}
}

func TestCompetitorAnalyzeByIDNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/competitor/analyze/NCT99999999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}
