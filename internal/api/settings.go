package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"oneclick/internal/models"
)

type preferencesRequest struct {
	DefaultModelKey string `json:"defaultModelKey"`
	Locale          string `json:"locale" validate:"required"`
}

type modelToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *handler) getCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Credential())
}

func (h *handler) putCredential(w http.ResponseWriter, r *http.Request) {
	var cred models.RepoCredential
	if !decodeBody(w, r, &cred) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.SetCredential(cred)
	writeJSON(w, http.StatusOK, ws.Credential())
}

func (h *handler) deleteCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.ClearCredential()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Settings.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !decode(w, r, &req) {
		return
	}
	prefs, err := h.svc.Settings.Update(r.Context(), currentUser(r).ID, req.DefaultModelKey, req.Locale)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handler) listModels(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Models.ListModelGroups()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *handler) setModelEnabled(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid model key")
		return
	}
	var req modelToggleRequest
	if !decode(w, r, &req) {
		return
	}
	model, err := h.svc.Models.SetModelEnabled(key, *req.Enabled)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}
