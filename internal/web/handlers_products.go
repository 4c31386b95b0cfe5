package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ListProducts(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondList(w, list)
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.ProductStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, stats)
}

func (s *Server) handleProductsByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseID(r, "companyId", "company")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ProductsByCompany(r.Context(), companyID, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondList(w, list)
}

func (s *Server) handleProductsByStatus(w http.ResponseWriter, r *http.Request) {
	parsed, err := strconv.ParseInt(chi.URLParam(r, "status"), 10, 32)
	status := int32(parsed)
	if err != nil || (status != database.StatusInactive && status != database.StatusActive) {
		s.respondError(w, r, &core.Error{Kind: core.ErrInvalidInput, Message: "Invalid status. Must be 0 (inactive) or 1 (active)"})
		return
	}
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ProductsByStatus(r.Context(), status, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondList(w, list)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "product")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	product, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in database.ProductInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	product, err := s.service.CreateProduct(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusCreated, "Product created successfully", product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "product")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var in database.ProductInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	product, err := s.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "Product updated successfully", product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id", "product")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	product, err := s.service.DeleteProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, http.StatusOK, "Product deleted successfully", product)
}
