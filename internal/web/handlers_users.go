package web

import (
	"net/http"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
	"github.com/JonMunkholm/catalog/internal/logging"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ListUsers(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondList(w, list)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.UserStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, stats)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "user")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.service.GetUser(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in database.UserInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.service.CreateUser(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusCreated, "User created successfully", user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "user")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var in database.UserInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.service.UpdateUser(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "User updated successfully", user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "user")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.service.DeleteUser(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "User deleted successfully", user)
}

// handleLogin verifies credentials. No session or token is issued.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req core.LoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.service.Login(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("user logged in", "user_id", user.ID, "ip", clientIP(r))
	respondMutation(w, http.StatusOK, "Login successful", user)
}
