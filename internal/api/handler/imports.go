package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/albapepper/scoracle-softball/internal/api/respond"
	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/importer"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to temp files.
const multipartMemory = 8 << 20

// PostImports imports one or more uploaded files. Each "file" part is its
// own transaction. One file answers with its Report; several answer with
// the BatchReport. The status is 200 when at least one file imported and
// 422 when every file failed.
func (h *Handler) PostImports(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	req, err := requestFromForm(form.Value)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidField, "Invalid import field", err.Error())
		return
	}

	files := form.File["file"]
	sources := make([]importer.Source, 0, len(files))
	for _, fh := range files {
		fh := fh
		sources = append(sources, importer.Source{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	h.importMu.Lock()
	batch := h.importer.ImportBatch(r.Context(), sources, req)
	h.importMu.Unlock()

	if batch.FilesProcessed > batch.FilesFailed {
		n := h.cache.InvalidatePrefix(cache.PrefixSeasons, cache.PrefixGames)
		h.logger.Info("Cache invalidated after import", "keys", n)
	}

	respond.WriteImport(w, batch)
}

// PostImportPreview reports what each uploaded file would import without
// writing anything: its file type and, for CSVs, the detected dialect and
// game fields.
func (h *Handler) PostImportPreview(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	type filePreview struct {
		File     string            `json:"file"`
		FileType importer.FileType `json:"file_type"`
		CSV      *importer.Preview `json:"csv,omitempty"`
		Error    string            `json:"error,omitempty"`
	}

	var out []filePreview
	for _, fh := range form.File["file"] {
		p := filePreview{File: fh.Filename}
		data, err := readPart(fh)
		if err != nil {
			p.FileType = importer.FileUnknown
			p.Error = err.Error()
			out = append(out, p)
			continue
		}
		p.FileType = importer.DetectFileType(fh.Filename, data)
		if p.FileType.IsCSV() {
			preview, err := importer.PreviewCSV(fh.Filename, data)
			p.CSV = &preview
			if err != nil {
				p.Error = err.Error()
			}
		} else if p.FileType == importer.FileUnknown {
			p.Error = importer.ErrUnknownFileType.Error()
		}
		out = append(out, p)
	}
	respond.WriteObject(w, http.StatusOK, map[string]interface{}{"files": out})
}

// parseUpload bounds the body, parses the multipart form and insists on at
// least one "file" part.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respond.WriteUploadError(w, err)
		return nil, false
	}
	if len(r.MultipartForm.File["file"]) == 0 {
		r.MultipartForm.RemoveAll()
		respond.WriteError(w, http.StatusBadRequest, respond.CodeMissingFile, "at least one \"file\" part is required")
		return nil, false
	}
	return r.MultipartForm, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// requestFromForm reads the season id and game overrides. Empty fields are
// "not supplied"; malformed numbers are an error.
func requestFromForm(values map[string][]string) (importer.Request, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	optInt := func(key string) (*int, error) {
		raw := get(key)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, raw)
		}
		return &n, nil
	}

	var req importer.Request
	if raw := get("season_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, fmt.Errorf("season_id: %q is not an integer", raw)
		}
		req.SeasonID = id
	}
	req.GameDate = get("game_date")
	req.GameTime = get("game_time")
	req.Opponent = get("opponent")
	req.WinLoss = get("win_loss")

	var err error
	if req.RunsFor, err = optInt("runs_for"); err != nil {
		return req, err
	}
	if req.RunsAgainst, err = optInt("runs_against"); err != nil {
		return req, err
	}
	return req, nil
}
