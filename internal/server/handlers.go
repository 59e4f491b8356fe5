package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Minimum stored records before an analysis is attempted.
const (
	minAnomalyRecords     = 5
	minSimulationRecords  = 5
	minCorrelationRecords = 3

	defaultFraction        = 0.1
	defaultSimulationLimit = 20
	maxSimulationLimit     = 500
	maxBodyBytes           = 8 << 20
)

func jsonOK(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternal, "database unavailable", nil)
		return
	}
	jsonOK(w, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpsertRecords accepts one record or an array of records.
func (s *Server) handleUpsertRecords(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "could not read request body", nil)
		return
	}
	records, err := decodeRecords(body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}
	for i, rec := range records {
		if rec.UserID == "" {
			s.respondErr(w, r, &models.InputError{Field: "user_id", Index: i, Err: models.ErrMissingUser})
			return
		}
		if _, err := rec.Day(); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}
	if err := s.store.UpsertRecords(r.Context(), records); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Debug("Records upserted", zap.Int("count", len(records)))
	jsonOK(w, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func decodeRecords(body []byte) ([]models.HealthRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	if trimmed[0] == '[' {
		var records []models.HealthRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("no records supplied")
		}
		return records, nil
	}
	var rec models.HealthRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	return []models.HealthRecord{rec}, nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	records, err := s.store.ListRecords(r.Context(), userID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if records == nil {
		records = []models.HealthRecord{}
	}
	jsonOK(w, map[string]interface{}{
		"user_id": userID,
		"records": records,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := models.ParseDay(vars["date"])
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	rec, err := s.store.GetRecord(r.Context(), vars["user_id"], models.FormatDay(day))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, rec)
}

// loadHistory fetches the user's records and enforces a minimum count.
// It writes the error response itself and reports whether to continue.
func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request, userID string, min int) ([]models.HealthRecord, bool) {
	records, err := s.store.ListRecords(r.Context(), userID)
	if err != nil {
		s.respondErr(w, r, err)
		return nil, false
	}
	if len(records) == 0 {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("no data found for user %s", userID), nil)
		return nil, false
	}
	if len(records) < min {
		respondError(w, r, http.StatusBadRequest, ErrCodeInsufficientData,
			fmt.Sprintf("insufficient data: need at least %d records, have %d", min, len(records)),
			map[string]string{"required": strconv.Itoa(min), "available": strconv.Itoa(len(records))})
		return nil, false
	}
	return records, true
}

func (s *Server) parseRange(w http.ResponseWriter, r *http.Request) (models.Range, bool) {
	q := r.URL.Query()
	rng, err := models.ParseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		s.respondErr(w, r, err)
		return models.Range{}, false
	}
	return rng, true
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	rng, ok := s.parseRange(w, r)
	if !ok {
		return
	}
	records, ok := s.loadHistory(w, r, userID, 1)
	if !ok {
		return
	}
	scores, err := s.engine.TrustScores(r.Context(), records, rng)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, map[string]interface{}{
		"user_id": userID,
		"scores":  scores,
	})
}

// handleFederatedTrust compares the user with every other stored user.
func (s *Server) handleFederatedTrust(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	records, ok := s.loadHistory(w, r, userID, 1)
	if !ok {
		return
	}
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	cohort := make([][]models.HealthRecord, 0, len(users))
	for _, u := range users {
		if u == userID {
			continue
		}
		peer, err := s.store.ListRecords(r.Context(), u)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		cohort = append(cohort, peer)
	}
	out, err := s.engine.FederatedTrust(r.Context(), records, cohort)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, out)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	rng, ok := s.parseRange(w, r)
	if !ok {
		return
	}
	records, ok := s.loadHistory(w, r, userID, minAnomalyRecords)
	if !ok {
		return
	}
	results, err := s.engine.DetectAnomalies(r.Context(), records, rng)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, map[string]interface{}{
		"user_id": userID,
		"results": results,
	})
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	records, ok := s.loadHistory(w, r, userID, minCorrelationRecords)
	if !ok {
		return
	}
	pairs, err := s.engine.Correlations(r.Context(), records)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, map[string]interface{}{
		"user_id":      userID,
		"correlations": pairs,
	})
}

func (s *Server) handleSecurity(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	rng, ok := s.parseRange(w, r)
	if !ok {
		return
	}
	records, ok := s.loadHistory(w, r, userID, 1)
	if !ok {
		return
	}
	posture, err := s.engine.SecurityPosture(r.Context(), records, rng)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	jsonOK(w, map[string]interface{}{
		"user_id": userID,
		"posture": posture,
	})
}

// simulateRequest mirrors models.SimulationRequest with an optional fraction.
type simulateRequest struct {
	UserID   string                `json:"user_id"`
	Mode     models.SimulationMode `json:"mode"`
	Fraction *float64              `json:"fraction"`
	Metrics  []string              `json:"metrics"`
	Seed     *int64                `json:"seed"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var body simulateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("invalid JSON: %v", err), nil)
		return
	}
	req := models.SimulationRequest{
		UserID:   body.UserID,
		Mode:     body.Mode,
		Fraction: defaultFraction,
		Metrics:  body.Metrics,
		Seed:     body.Seed,
	}
	if body.Fraction != nil {
		req.Fraction = *body.Fraction
	}
	if err := req.Validate(); err != nil {
		s.respondErr(w, r, err)
		return
	}

	records, ok := s.loadHistory(w, r, req.UserID, minSimulationRecords)
	if !ok {
		return
	}
	res, err := s.engine.Simulate(r.Context(), records, req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	run := &models.SimulationRun{
		ID:       res.RunID,
		UserID:   res.UserID,
		Mode:     string(res.Mode),
		Fraction: res.Fraction,
		Seed:     res.Seed,
		Injected: res.Detection.Injected,
		Caught:   res.Detection.Caught,
		Recall:   res.Detection.Recall,
		Detected: countFlagged(res.DetectedAnomalies),
	}
	if err := s.store.SaveSimulationRun(r.Context(), run); err != nil {
		// The result is still valid; only the history entry is lost.
		s.logger.Error("Failed to persist simulation run",
			zap.String("run_id", res.RunID),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
	}
	jsonOK(w, res)
}

func countFlagged(results []models.AnomalyResult) int {
	n := 0
	for _, r := range results {
		if r.IsAnomaly {
			n++
		}
	}
	return n
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	limit := defaultSimulationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
				"limit must be a positive integer", map[string]string{"limit": v})
			return
		}
		if n > maxSimulationLimit {
			n = maxSimulationLimit
		}
		limit = n
	}
	runs, err := s.store.ListSimulationRuns(r.Context(), userID, limit)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if runs == nil {
		runs = []*models.SimulationRun{}
	}
	jsonOK(w, map[string]interface{}{
		"user_id": userID,
		"runs":    runs,
	})
}
