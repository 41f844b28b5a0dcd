package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/model"
)

// searchRequestBody is the search trigger's JSON body.
type searchRequestBody struct {
	UserID           string   `json:"user_id"`
	IndustryKeywords []string `json:"industry_keywords"`
	CompanyLocation  []string `json:"company_location"`
	Titles           []string `json:"titles"`
	Seniorities      []string `json:"seniorities"`
	EmployeeRanges   []string `json:"employee_ranges"`
	MaxResults       int      `json:"max_results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLeadSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if s.searcher == nil {
		writeError(w, http.StatusInternalServerError, "search provider API key is not configured")
		return
	}

	result, err := s.searcher.Run(r.Context(), model.SearchRequest{
		UserID: body.UserID,
		Filters: model.SearchFilters{
			IndustryKeywords: body.IndustryKeywords,
			CompanyLocations: body.CompanyLocation,
			Titles:           body.Titles,
			Seniorities:      body.Seniorities,
			EmployeeRanges:   body.EmployeeRanges,
		},
		MaxResults: body.MaxResults,
	})
	if err != nil {
		zap.L().Error("lead search failed",
			zap.String("user_id", body.UserID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	leads := result.Leads
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_run_id": result.BatchRunID,
		"leads_count":  len(leads),
		"leads":        leads,
	})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var req enrich.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.authorized(r, req.Secret) {
		writeError(w, http.StatusUnauthorized, "invalid or missing secret")
		return
	}
	if req.RecordID == "" || req.TableName == "" {
		writeError(w, http.StatusBadRequest, "record_id and table_name are required")
		return
	}
	if s.dispatcher == nil {
		writeError(w, http.StatusInternalServerError, "enrichment provider API key is not configured")
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), &req)
	if err != nil {
		zap.L().Error("enrichment dispatch failed",
			zap.String("record_id", req.RecordID),
			zap.String("table", req.TableName),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := enrich.CallbackParams{
		RecordID:  q.Get("record_id"),
		TableName: q.Get("table_name"),
		Prefs: enrich.RevealPrefs{
			Email: parseBoolDefault(q.Get("reveal_email"), true),
			Phone: parseBoolDefault(q.Get("reveal_phone"), true),
		},
	}
	if params.RecordID == "" || params.TableName == "" {
		writeError(w, http.StatusBadRequest, "record_id and table_name query parameters are required")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable callback body")
		return
	}

	result := s.reconciler.HandleCallback(r.Context(), params, payload)
	writeJSON(w, http.StatusOK, result)
}

// authorized checks the shared secret against the header, bearer token,
// query string, or body field.
func (s *Server) authorized(r *http.Request, bodySecret string) bool {
	if s.secret == "" {
		return false
	}
	candidates := []string{
		r.Header.Get("X-Enrich-Secret"),
		strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		r.URL.Query().Get("secret"),
		bodySecret,
	}
	for _, c := range candidates {
		if c != "" && subtle.ConstantTimeCompare([]byte(c), []byte(s.secret)) == 1 {
			return true
		}
	}
	return false
}

// recoverer converts handler panics into a JSON 500 and, for enrichment
// paths, a best-effort audit entry.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			msg := "internal error"
			if err, ok := rec.(error); ok {
				msg = err.Error()
			} else if str, ok := rec.(string); ok {
				msg = str
			}
			zap.L().Error("handler panic",
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
			)
			if s.store != nil && (strings.HasPrefix(r.URL.Path, "/api/enrich") || strings.HasPrefix(r.URL.Path, "/webhook/")) {
				entry := model.EnrichmentLogEntry{
					RecordID:  r.URL.Query().Get("record_id"),
					TableName: r.URL.Query().Get("table_name"),
					Method:    "panic",
					Error:     msg,
				}
				if err := s.store.AppendEnrichmentLog(r.Context(), entry); err != nil {
					zap.L().Error("panic audit log write failed", zap.Error(err))
				}
			}
			writeError(w, http.StatusInternalServerError, msg)
		}()
		next.ServeHTTP(w, r)
	})
}

func parseBoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
