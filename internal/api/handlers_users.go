package api

import (
	"net/http"

	"staybook/internal/models"

	"github.com/julienschmidt/httprouter"
)

func (s *HTTPServer) createUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createUserRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "User")
		return
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
	}
	if err := s.svc.Users.CreateUser(r.Context(), user); err != nil {
		writeError(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *HTTPServer) currentUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	user, err := s.svc.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
