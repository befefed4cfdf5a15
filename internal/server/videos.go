package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// videosResponse is the JSON body for video list endpoints.
type videosResponse struct {
	Videos []catalog.Video `json:"videos"`
}

// handleListVideos serves the full catalog, optionally narrowed by the
// ?category= query parameter (matched against each video's primary
// category).
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos := s.cat.Videos()

	if cat := r.URL.Query().Get("category"); cat != "" {
		filtered := videos[:0:0]
		for _, v := range videos {
			if v.PrimaryCategory() == cat {
				filtered = append(filtered, v)
			}
		}
		videos = filtered
	}

	writeJSON(w, http.StatusOK, videosResponse{Videos: videos})
}

// handleGetVideo serves a single video by its catalog ID.
func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.cat.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleCategories serves the distinct primary categories, sorted.
func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories": s.cat.Categories(),
	})
}
