package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetProfile handles GET /profiles/{userID} requests.
// Unknown users get a fresh default profile rather than 404.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.writeFailure(w, r, NewKind(op, ErrBadRequest))
		return
	}
	p, err := s.deps.Profile(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
