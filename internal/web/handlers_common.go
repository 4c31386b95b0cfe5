// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/core"
)

// DataResponse is the body of a successful single-entity request.
type DataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// ListResponse is the body of a successful list request.
type ListResponse[T any] struct {
	Success    bool            `json:"success"`
	Data       []T             `json:"data"`
	Pagination core.Pagination `json:"pagination"`
}

func respondData(w http.ResponseWriter, data any) {
	writeJSON(w, DataResponse{Success: true, Data: data})
}

func respondMutation(w http.ResponseWriter, status int, message string, data any) {
	writeJSONStatus(w, status, DataResponse{Success: true, Message: message, Data: data})
}

func respondList[T any](w http.ResponseWriter, list core.List[T]) {
	items := list.Items
	if items == nil {
		items = []T{}
	}
	writeJSON(w, ListResponse[T]{Success: true, Data: items, Pagination: list.Pagination})
}

// parseID reads a positive integer path parameter. label names the
// parameter in the error message, e.g. "company".
func parseID(r *http.Request, param, label string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &core.Error{Kind: core.ErrInvalidInput, Message: "Invalid " + label + " ID"}
	}
	return id, nil
}

// parseQueryInt reads an optional integer query parameter. Absent values
// return 0; present values must be integers of at least min.
func parseQueryInt(r *http.Request, name string, min int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return 0, &core.Error{
			Kind:    core.ErrInvalidInput,
			Message: fmt.Sprintf("%s must be an integer of at least %d", name, min),
		}
	}
	return v, nil
}

// parsePageRequest reads page, limit, sortBy, sortOrder and search.
func parsePageRequest(r *http.Request) (core.PageRequest, error) {
	page, err := parseQueryInt(r, "page", 1)
	if err != nil {
		return core.PageRequest{}, err
	}
	limit, err := parseQueryInt(r, "limit", 1)
	if err != nil {
		return core.PageRequest{}, err
	}

	q := r.URL.Query()
	return core.PageRequest{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Search:    q.Get("search"),
	}, nil
}

// decodeJSON reads a JSON request body into v, capped at the configured
// maximum body size.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &core.Error{Kind: core.ErrInvalidInput, Message: "Request body too large"}
		case errors.Is(err, io.EOF):
			return &core.Error{Kind: core.ErrInvalidInput, Message: "Request body is required"}
		default:
			return &core.Error{Kind: core.ErrInvalidInput, Message: "Invalid JSON body"}
		}
	}
	return nil
}

// clientIP returns the client address without its port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
