package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"oneclick/internal/services"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Users.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		fail(w, r, err)
		return
	}
	session, err := h.svc.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.svc.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.FetchProfile(r.Context(), "", currentUser(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if u == nil {
		fail(w, r, services.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) listPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.svc.Packages.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (h *handler) submitTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.SubmitTransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.UserID = currentUser(r).ID
	tx, err := h.svc.Transactions.Submit(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Transactions.ListByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *handler) pendingTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Transactions.ListPending(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *handler) approveTransaction(w http.ResponseWriter, r *http.Request) {
	h.reviewTransaction(w, r, h.svc.Transactions.Approve)
}

func (h *handler) rejectTransaction(w http.ResponseWriter, r *http.Request) {
	h.reviewTransaction(w, r, h.svc.Transactions.Reject)
}

func (h *handler) reviewTransaction(w http.ResponseWriter, r *http.Request, review func(ctx context.Context, id uint) (*services.ReviewOutcome, error)) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	out, err := review(r.Context(), uint(id))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
