package api

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"oneclick/internal/models"
	"oneclick/internal/services"
)

type instructionRequest struct {
	Text string `json:"text" validate:"required"`
}

type studioState struct {
	Files   map[string]string    `json:"files"`
	History []models.ChatMessage `json:"history"`
}

func (h *handler) workspace(w http.ResponseWriter, r *http.Request) (*services.Workspace, bool) {
	ws, err := h.svc.Workspaces.Get(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return ws, true
}

func (h *handler) studio(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, studioState{Files: ws.Session.Files(), History: ws.Session.History()})
}

func (h *handler) applyInstruction(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if !decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	turn, err := ws.Session.ApplyInstruction(r.Context(), req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turn":  turn,
		"files": ws.Session.Files(),
	})
}

func (h *handler) resetStudio(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Session.Reset(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studioState{Files: ws.Session.Files(), History: ws.Session.History()})
}

// preview serves one project file so the frontend can load the project in
// an iframe.
func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if name == "" {
		name = "index.html"
	}
	content, found := ws.Session.File(name)
	if !found {
		writeError(w, http.StatusNotFound, "file not found: "+name)
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	b := h.svc.Events.Broadcaster()
	if b == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream is not enabled")
		return
	}
	b.ServeStream(w, r, services.UserSessionKey(currentUser(r).ID))
}
