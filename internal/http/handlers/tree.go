package handlers

import (
	"context"
	"net/http"

	apierrors "github.com/pribylovaa/locations-gateway/internal/errors"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/tree"
)

func (h *Handlers) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Locations.RootView(r.Context()))
}

func (h *Handlers) RefreshTree(w http.ResponseWriter, r *http.Request) {
	v, err := h.Locations.RefreshRoot(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) LoadMoreTree(w http.ResponseWriter, r *http.Request) {
	v, err := h.Locations.LoadMoreRoot(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) GetNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.Node)
}

func (h *Handlers) ToggleNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.Toggle)
}

func (h *Handlers) ExpandNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.Expand)
}

func (h *Handlers) CollapseNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.Collapse)
}

func (h *Handlers) LoadMoreNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.LoadMore)
}

func (h *Handlers) RefreshNode(w http.ResponseWriter, r *http.Request) {
	h.nodeAction(w, r, h.Locations.Refresh)
}

type nodeFunc func(ctx context.Context, level models.Level, id int64) (tree.View, error)

func (h *Handlers) nodeAction(w http.ResponseWriter, r *http.Request, fn nodeFunc) {
	level, id, ok := nodeParams(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid level or id")
		return
	}

	v, err := fn(r.Context(), level, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}
