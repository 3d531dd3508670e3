package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/locations-gateway/internal/errors"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/service"
)

// maxUploadBytes — предел multipart-тела пакетного импорта.
const maxUploadBytes = 11 << 20

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	res, err := h.Locations.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) Journal(w http.ResponseWriter, r *http.Request) {
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			apierrors.BadRequest(w, r, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.Locations.Journal(r.Context(), limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.JournalResponse{Items: items})
}

func (h *Handlers) CreateLocation(w http.ResponseWriter, r *http.Request) {
	level, ok := levelParam(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid level")
		return
	}

	var req models.CreateLocationRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.BadRequest(w, r, "invalid body")
		return
	}

	loc, err := h.Locations.Add(r.Context(), service.AddInput{
		Level:    level,
		ParentID: req.ParentID,
		Name:     req.Name,
		Flag:     req.Flag,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, loc)
}

func (h *Handlers) RenameLocation(w http.ResponseWriter, r *http.Request) {
	level, id, ok := nodeParams(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid level or id")
		return
	}

	var req models.RenameLocationRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.BadRequest(w, r, "invalid body")
		return
	}

	loc, err := h.Locations.Edit(r.Context(), level, id, req.Name)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

func (h *Handlers) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	level, id, ok := nodeParams(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid level or id")
		return
	}

	if err := h.Locations.Delete(r.Context(), level, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkImport принимает multipart/form-data: file — JSON-файл, parent_id — id родителя
// (не нужен для стран).
func (h *Handlers) BulkImport(w http.ResponseWriter, r *http.Request) {
	level, ok := levelParam(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid level")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apierrors.BadRequest(w, r, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var parentID int64
	if v := r.FormValue("parent_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(w, r, "invalid parent_id")
			return
		}
		parentID = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			apierrors.BadRequest(w, r, "file is required")
			return
		}
		apierrors.BadRequest(w, r, "invalid file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.BadRequest(w, r, "invalid file")
		return
	}

	res, err := h.Locations.BulkImport(r.Context(), service.BulkImportInput{
		Level:    level,
		ParentID: parentID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
