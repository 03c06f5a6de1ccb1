package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mietwerk/leasescan/internal/export"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/pdftext"
	"github.com/mietwerk/leasescan/internal/pipeline"
	"github.com/mietwerk/leasescan/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(pdftext.MaxFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	f, err := readUpload(file, header)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := pdftext.ValidateUpload(f.Data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.proc.Process(r.Context(), f)
	if err != nil {
		zap.L().Error("extract request failed", zap.String("filename", f.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(pdftext.MaxFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, http.StatusBadRequest, "missing files field")
		return
	}

	var files []pipeline.File
	for _, header := range r.MultipartForm.File["files"] {
		part, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		f, err := readUpload(part, header)
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		files = append(files, f)
	}

	outcomes, err := s.proc.ProcessBatch(r.Context(), files)
	if err != nil {
		// Batch-level failures are request errors: too many files, none at all.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		zap.L().Error("list results failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if results == nil {
		results = []model.ExtractionResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.store.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		zap.L().Error("get result failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteResult(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		zap.L().Error("delete result failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		zap.L().Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := "leasescan_export_" + time.Now().UTC().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteXLSX(w, results); err != nil {
		// Headers are already out; all we can do is log.
		zap.L().Error("export write failed", zap.Error(err))
	}
}

// readUpload pulls one multipart file into memory with a sanitized filename.
func readUpload(part multipart.File, header *multipart.FileHeader) (pipeline.File, error) {
	data, err := io.ReadAll(io.LimitReader(part, pdftext.MaxFileBytes+1))
	if err != nil {
		return pipeline.File{}, errors.New("could not read upload")
	}
	return pipeline.File{Name: sanitizeFilename(header.Filename), Data: data}, nil
}

// sanitizeFilename strips any path components a client smuggles into the
// multipart filename.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "upload.pdf"
	}
	return name
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{
		Status: model.Status(q.Get("status")),
		Tier:   model.QualityTier(q.Get("tier")),
		City:   q.Get("city"),
	}

	if v := q.Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return store.Filter{}, errors.New("invalid min_score")
		}
		filter.MinScore = score
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return store.Filter{}, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return store.Filter{}, errors.New("invalid offset")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
