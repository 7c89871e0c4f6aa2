package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aniscope/aniscope/internal/anilist"
	"github.com/aniscope/aniscope/internal/domain"
	"github.com/aniscope/aniscope/internal/ingest"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format, err := domain.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "format must be anime or manga")
		return
	}

	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "username is required")
		return
	}

	analysis, err := s.analyzer.Run(r.Context(), username, format)
	if err != nil {
		s.respondAnalysisError(w, username, format, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) respondAnalysisError(w http.ResponseWriter, username string, format domain.Format, err error) {
	switch {
	case errors.Is(err, anilist.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "AniList user "+username+" not found")
	case errors.Is(err, anilist.ErrRateLimited):
		s.respondError(w, http.StatusServiceUnavailable, "RATE_LIMITED", "AniList is a bit overloaded at the moment, please try again later")
	case errors.Is(err, ingest.ErrNoScores):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "AniList returned no "+format.String()+" for "+username)
	case errors.Is(err, anilist.ErrTimeout):
		s.respondError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "AniList did not respond in time")
	default:
		s.logger.Error().Err(err).Str("username", username).Str("format", format.String()).Msg("analysis failed")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to analyze "+username)
	}
}
