package web

import (
	"net/http"

	"github.com/JonMunkholm/catalog/internal/database"
)

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ListCompanies(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondList(w, list)
}

func (s *Server) handleCompanyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.CompanyStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, stats)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "company")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	company, err := s.service.GetCompany(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, company)
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var in database.CompanyInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	company, err := s.service.CreateCompany(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusCreated, "Company created successfully", company)
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "company")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var in database.CompanyInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	company, err := s.service.UpdateCompany(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "Company updated successfully", company)
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "company")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	company, err := s.service.DeleteCompany(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "Company deleted successfully", company)
}
