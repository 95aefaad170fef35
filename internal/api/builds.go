package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const defaultHistoryLimit = 20

func (h *handler) startBuild(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	snap, err := ws.StartBuild(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (h *handler) currentBuild(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Builds.Snapshot())
}

func (h *handler) resetBuild(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Builds.Reset(); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Builds.Snapshot())
}

func (h *handler) cancelBuild(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Builds.Cancel()
	writeJSON(w, http.StatusOK, ws.Builds.Snapshot())
}

func (h *handler) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	data, name, err := ws.Builds.DownloadArtifact(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) buildHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	jobs, err := ws.BuildHistory(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}
