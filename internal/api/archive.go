package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/handlers"
	"github.com/JaimeStill/agentflow/pkg/routes"
	"github.com/JaimeStill/agentflow/pkg/storage"
)

// archiveHandler serves archived run results from blob storage.
type archiveHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newArchiveHandler(store storage.System, logger *slog.Logger, maxListSize int32) *archiveHandler {
	return &archiveHandler{
		store:       store,
		logger:      logger.With("handler", "archive"),
		maxListSize: maxListSize,
	}
}

func (h *archiveHandler) routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/archive",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.list},
			},
		},
		{
			Prefix: "/runs/{run_id}/archive",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.listRun},
				{Method: "GET", Pattern: "/{step}", Handler: h.result},
				{Method: "DELETE", Pattern: "/{step}", Handler: h.delete},
			},
		},
	}
}

// list pages through every archived result. The prefix query narrows the
// listing within the runs/ namespace.
func (h *archiveHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := "runs/" + strings.TrimPrefix(q.Get("prefix"), "runs/")
	h.respondList(w, r, prefix, q.Get("marker"), q.Get("max_results"))
}

func (h *archiveHandler) listRun(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.respondList(w, r, workflow.ArchivePrefix(r.PathValue("run_id")), q.Get("marker"), q.Get("max_results"))
}

func (h *archiveHandler) respondList(w http.ResponseWriter, r *http.Request, prefix, marker, max string) {
	maxResults, err := storage.ParseMaxResults(max, h.maxListSize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.store.List(r.Context(), prefix, marker, maxResults)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// result streams one archived result document.
func (h *archiveHandler) result(w http.ResponseWriter, r *http.Request) {
	key, err := resultKey(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	blob, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, blob.Body); err != nil {
		h.logger.Warn("archive stream interrupted", "key", key, "error", err)
	}
}

func (h *archiveHandler) delete(w http.ResponseWriter, r *http.Request) {
	key, err := resultKey(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.store.Delete(r.Context(), key); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func resultKey(r *http.Request) (string, error) {
	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil || step < 0 {
		return "", fmt.Errorf("step must be a non-negative integer")
	}
	return workflow.ArchiveKey(r.PathValue("run_id"), step), nil
}
