package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

const maxFlowBody = 16 << 20

func (s *Server) registerFlowRoutes(r chi.Router) {
	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.handleListFlows)
		r.Post("/", s.handleCreateFlow)
		r.Get("/{id}", s.handleGetFlow)
		r.Post("/{id}", s.handleStoreFlow)
		r.Delete("/{id}", s.handleDeleteFlow)
	})
}

func flowID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFlowBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	list, err := s.flows.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.ListFlowsResponse{Flows: list})
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateFlowRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.flows.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contracts.CreateFlowResponse{Flow: m})
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	data, err := s.flows.Get(r.Context(), flowID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.FullFlow{Flow: data})
}

func (s *Server) handleStoreFlow(w http.ResponseWriter, r *http.Request) {
	var req contracts.FullFlow
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.flows.Save(r.Context(), flowID(r), req.Flow)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.CreateFlowResponse{Flow: m})
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.flows.Delete(r.Context(), flowID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK, "flow deleted")
}
