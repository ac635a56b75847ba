package agents

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/handlers"
	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/routes"
)

// Handler provides HTTP endpoints for agent operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "agents"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for agent endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/import", Handler: h.Import},
			{Method: "GET", Pattern: "/{id}/export", Handler: h.Export},
			{Method: "GET", Pattern: "/{id}/graph", Handler: h.Graph},
			{Method: "POST", Pattern: "/{id}/run", Handler: h.Run},
			{Method: "POST", Pattern: "/{id}/resume", Handler: h.Resume},
			{Method: "GET", Pattern: "/{id}/state", Handler: h.State},
		},
	}
}

// RunRoutes returns the route group for run-scoped endpoints.
func (h *Handler) RunRoutes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{run_id}/checkpoints", Handler: h.Checkpoints},
		},
	}
}

// List returns a paginated list of agents with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single agent with its nodes.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	agent, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, agent)
}

// Create processes a JSON body to create an agent under an existing project.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.DecodeJSON[CreateCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	agent, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, agent)
}

// Update processes a JSON body to update an existing agent.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	cmd, err := handlers.DecodeJSON[UpdateCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	agent, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, agent)
}

// Delete removes an agent and its nodes.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching agents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[SearchRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Import creates an agent and its nodes from a manifest body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	m, err := handlers.DecodeJSON[Manifest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	agent, err := h.sys.Import(r.Context(), m)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, agent)
}

// Export returns the manifest of an agent.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	m, err := h.sys.Export(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}

// Graph compiles the agent's nodes and returns the resulting topology.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondRunError(w, http.StatusBadRequest, ErrInvalidID)
		return
	}

	topo, err := h.sys.Graph(r.Context(), id)
	if err != nil {
		h.respondRunError(w, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, topo)
}

// Run executes the agent. The optional run_id query parameter selects the
// checkpoint lineage; it defaults to the agent id.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondRunError(w, http.StatusBadRequest, ErrInvalidID)
		return
	}

	opts := workflow.Options{RunID: r.URL.Query().Get("run_id")}

	result, err := h.sys.Run(r.Context(), id, opts)
	if err != nil {
		h.respondRunError(w, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Resume continues a run from its latest checkpoint.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondRunError(w, http.StatusBadRequest, ErrInvalidID)
		return
	}

	result, err := h.sys.Resume(r.Context(), id, r.URL.Query().Get("run_id"))
	if err != nil {
		h.respondRunError(w, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// State returns the latest checkpoint of a run.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondRunError(w, http.StatusBadRequest, ErrInvalidID)
		return
	}

	cp, err := h.sys.State(r.Context(), id, r.URL.Query().Get("run_id"))
	if err != nil {
		h.respondRunError(w, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cp)
}

// Checkpoints returns the checkpoint history of a run in step order.
func (h *Handler) Checkpoints(w http.ResponseWriter, r *http.Request) {
	cps, err := h.sys.Checkpoints(r.Context(), r.PathValue("run_id"))
	if err != nil {
		h.respondRunError(w, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cps)
}

func (h *Handler) respondRunError(w http.ResponseWriter, status int, err error) {
	handlers.RespondErrorKind(w, h.logger, status, Kind(err), err)
}
