package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trialscout/trialscout/internal/model"
)

type descriptionRequest struct {
	Description string `json:"description"`
}

type matchRequest struct {
	Description string                 `json:"description"`
	Location    *model.PatientLocation `json:"location,omitempty"`
}

type matchStructuredRequest struct {
	Profile model.PatientProfile `json:"profile"`
}

type competitorAnalyzeRequest struct {
	Profile model.ResearcherTrialProfile `json:"profile"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.engine.MatchFreeText(r.Context(), req.Description, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchStructured(w http.ResponseWriter, r *http.Request) {
	var req matchStructuredRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.engine.MatchStructured(r.Context(), &req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchParse(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	parsed, err := s.engine.ParsePatient(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

func (s *Server) handleCompetitorAnalyze(w http.ResponseWriter, r *http.Request) {
	var req competitorAnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.engine.AnalyzeCompetitorStructured(r.Context(), &req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompetitorAnalyzeNatural(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.engine.AnalyzeCompetitorFreeText(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompetitorAnalyzeByID(w http.ResponseWriter, r *http.Request) {
	nctID := chi.URLParam(r, "nctID")

	resp, err := s.engine.AnalyzeCompetitorByReferenceID(r.Context(), nctID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompetitorParse(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	parsed, err := s.engine.ParseTrialProfile(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}
