package server

import (
	"net/http"
)

const (
	defaultRetentionDays = 30
	maxRetentionDays     = 365
	defaultHeatmapDays   = 90
	maxHeatmapDays       = 365
)

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	days := intQueryParam(r, "days", defaultRetentionDays, maxRetentionDays)

	retention, err := s.analytics.RetentionByDay(r.Context(), userID, days, s.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"retention": retention})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	topics, err := s.analytics.TopicPerformanceByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	summary, err := s.analytics.Summarize(r.Context(), userID, s.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	days := intQueryParam(r, "days", defaultHeatmapDays, maxHeatmapDays)

	heatmap, err := s.analytics.Heatmap(r.Context(), userID, days, s.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"heatmap": heatmap})
}
