// Package respond writes the API's JSON bodies: cached read payloads, import
// reports and the error envelope.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/albapepper/scoracle-softball/internal/importer"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// Error codes carried in the envelope.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidID      = "INVALID_ID"
	CodeInvalidField   = "INVALID_FIELD"
	CodeInvalidUpload  = "INVALID_UPLOAD"
	CodeMissingFile    = "MISSING_FILE"
	CodeUploadTooLarge = "UPLOAD_TOO_LARGE"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternal       = "INTERNAL"
)

// ErrorResponse is the envelope every API error uses.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// WriteCached writes a marshaled season/game payload with its ETag. X-Cache
// says whether it came from the cache.
func WriteCached(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, hit bool) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("ETag", etag)
	h.Set("Vary", "Accept-Encoding")
	h.Set("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[hit])
	// Imports invalidate server-side; clients may only revalidate.
	h.Set("Cache-Control", fmt.Sprintf("private, max-age=%d, must-revalidate", int(ttl.Seconds())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified answers a matching If-None-Match.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteReadError maps a store error: store.ErrNotFound is a 404, anything
// else a 500 with the cause hidden. It reports whether the error was
// internal so the caller can log it.
func WriteReadError(w http.ResponseWriter, err error) (internal bool) {
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorDetail(w, http.StatusNotFound, CodeNotFound, "Resource not found", err.Error())
		return false
	}
	WriteError(w, http.StatusInternalServerError, CodeInternal, "Failed to load data")
	return true
}

// --------------------------------------------------------------------------
// Imports
// --------------------------------------------------------------------------

// ImportStatus is 200 when at least one file imported and 422 when every
// file failed.
func ImportStatus(b importer.BatchReport) int {
	if b.FilesProcessed > 0 && b.FilesFailed == b.FilesProcessed {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// WriteImport writes a batch outcome. A single file answers with its own
// Report, several with the BatchReport. X-Import-Files-Failed always
// carries the failure count; a single file also sets X-Import-Id.
func WriteImport(w http.ResponseWriter, b importer.BatchReport) {
	w.Header().Set("X-Import-Files-Failed", strconv.Itoa(b.FilesFailed))
	if len(b.Files) == 1 {
		w.Header().Set("X-Import-Id", b.Files[0].ImportID)
		WriteObject(w, ImportStatus(b), b.Files[0])
		return
	}
	WriteObject(w, ImportStatus(b), b)
}

// WriteUploadError reports a multipart parse failure: 413 when the body
// went over the upload limit, 400 otherwise.
func WriteUploadError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteError(w, http.StatusRequestEntityTooLarge, CodeUploadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit))
		return
	}
	WriteErrorDetail(w, http.StatusBadRequest, CodeInvalidUpload, "Expected a multipart/form-data upload", err.Error())
}

// --------------------------------------------------------------------------
// Shared
// --------------------------------------------------------------------------

// WriteError sends the error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

// WriteErrorDetail sends the error envelope with a detail line.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, resp)
}

// WriteObject writes an uncached value: health checks, reports, previews.
func WriteObject(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
