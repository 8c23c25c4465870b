package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"absence-ml/internal/ml"
)

type driverAnalysisRequest struct {
	Outcome   string `json:"outcome"`
	WeeksBack int    `json:"weeks_back"`
}

type predictRequest struct {
	PersonPseudonym string `json:"person_pseudonym"`
	ISOYear         int    `json:"iso_year"`
	ISOWeek         int    `json:"iso_week"`
}

type batchPredictResponse struct {
	Status               string `json:"status"`
	PredictionsGenerated int    `json:"predictions_generated"`
	ISOYear              int    `json:"iso_year"`
	ISOWeek              int    `json:"iso_week"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"status":    "running",
		"endpoints": []string{"/driver-analysis", "/predict", "/batch-predict", "/models"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDriverAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "method not allowed"})
		return
	}

	req := driverAnalysisRequest{WeeksBack: 52}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if !ml.IsOutcome(req.Outcome) {
		writeBadRequest(w, "unsupported outcome %q, expected %q or %q",
			req.Outcome, ml.OutcomeTotalAbsence, ml.OutcomeEgenmeldt)
		return
	}

	report, err := s.svc.DriverAnalysis(r.Context(), req.Outcome, req.WeeksBack)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.ledger != nil {
		if err := s.ledger.ArchiveDriverReport(req.Outcome, report); err != nil {
			log.Warn().Err(err).Str("outcome", req.Outcome).Msg("failed to archive driver report")
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "method not allowed"})
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if req.PersonPseudonym == "" {
		writeBadRequest(w, "person_pseudonym is required")
		return
	}
	if !validWeek(req.ISOYear, req.ISOWeek) {
		writeBadRequest(w, "invalid iso_year/iso_week: %d-W%d", req.ISOYear, req.ISOWeek)
		return
	}

	result, err := s.svc.Predict(r.Context(), req.PersonPseudonym, req.ISOYear, req.ISOWeek)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "method not allowed"})
		return
	}

	isoYear, err := strconv.Atoi(r.URL.Query().Get("iso_year"))
	if err != nil {
		writeBadRequest(w, "iso_year query parameter is required")
		return
	}
	isoWeek, err := strconv.Atoi(r.URL.Query().Get("iso_week"))
	if err != nil {
		writeBadRequest(w, "iso_week query parameter is required")
		return
	}
	if !validWeek(isoYear, isoWeek) {
		writeBadRequest(w, "invalid iso_year/iso_week: %d-W%d", isoYear, isoWeek)
		return
	}

	count, err := s.svc.BatchPredict(r.Context(), isoYear, isoWeek)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchPredictResponse{
		Status:               "success",
		PredictionsGenerated: count,
		ISOYear:              isoYear,
		ISOWeek:              isoWeek,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "training history not enabled"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.ledger.History(r.URL.Query().Get("model_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"versions": records})
}

func validWeek(isoYear, isoWeek int) bool {
	return isoYear >= 2000 && isoYear <= 2100 && isoWeek >= 1 && isoWeek <= 53
}
