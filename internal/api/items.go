package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/model"
)

// uploadFields are the multipart field names accepted for an item photo.
var uploadFields = []string{"file", "image"}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

// listItems handles GET /api/items.
func (s *server) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := r.URL.Query().Get("status")
	action := r.URL.Query().Get("action")
	if status != "" || action != "" {
		filtered := make([]model.Item, 0, len(items))
		for _, it := range items {
			if (status == "" || it.Status == status) && (action == "" || it.Action == action) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []model.Item{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"count":  len(items),
		"items":  items,
	})
}

// getItem handles GET /api/items/{id}.
func (s *server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "item": item})
}

// ingestItem handles POST /api/items/ingest.
func (s *server) ingestItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.jsonError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer file.Close()

		item, err := s.pipeline.Ingest(r.Context(), header.Filename, file)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusCreated, map[string]any{"status": "added", "item": item})
		return
	}
	s.jsonError(w, http.StatusBadRequest, "image file required in field \"file\"")
}

// updateItem handles PUT /api/items/{id}.
func (s *server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var fields model.Fields
	if err := decodeJSON(r, &fields); err != nil || fields == nil {
		s.jsonError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	item, err := s.store.Update(r.Context(), id, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("item updated", zap.Int64("id", id), zap.Int("fields", len(fields)), userField(r.Context()))
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "updated", "item": item})
}

// deleteItem handles DELETE /api/items/{id}.
func (s *server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.pipeline.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("item deleted", zap.Int64("id", id), userField(r.Context()))
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// getImage handles GET /api/items/{id}/image.
func (s *server) getImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path, ok := s.pipeline.ImageFile(item)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "no image")
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		s.jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
