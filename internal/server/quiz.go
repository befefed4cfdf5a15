package server

import (
	"context"
	"net/http"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
	"github.com/fitnessuom/ephit-mental-health/internal/quiz"
)

// quizRequest carries the answers collected so far. Empty fields are
// wildcards.
type quizRequest struct {
	Answers catalog.Answers `json:"answers"`
}

// recommendRequest optionally overrides the suggestion count.
type recommendRequest struct {
	Answers catalog.Answers `json:"answers"`
	Count   int             `json:"count,omitempty"`
}

// handleQuizFilter returns every video matching the given answers.
func (s *Server) handleQuizFilter(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, videosResponse{Videos: s.cat.Filter(req.Answers)})
}

// handleQuizOptions returns the per-axis values still selectable given the
// answers so far.
func (s *Server) handleQuizOptions(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.cat.AvailableOptions(req.Answers))
}

// handleQuizRecommend returns a sampled suggestion set for a completed quiz
// and records the run in the history.
func (s *Server) handleQuizRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !readJSON(w, r, &req) {
		return
	}

	count := req.Count
	if count <= 0 {
		count = s.recommendCount
	}
	videos := s.cat.Recommend(req.Answers, count, s.rng)

	entry := s.history.Add(req.Answers, videos)
	s.metrics.QuizCompletions.Add(context.WithoutCancel(r.Context()), 1)

	writeJSON(w, http.StatusOK, struct {
		Videos []catalog.Video `json:"videos"`
		Entry  quiz.Entry      `json:"entry"`
	}{Videos: videos, Entry: entry})
}

// handleQuizHistory returns the retained quiz runs, newest first.
func (s *Server) handleQuizHistory(w http.ResponseWriter, _ *http.Request) {
	entries := s.history.Entries()
	if entries == nil {
		entries = []quiz.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string][]quiz.Entry{"entries": entries})
}
